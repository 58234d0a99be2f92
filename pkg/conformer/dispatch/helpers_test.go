package dispatch_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)

	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, r := range h.records {
		if r.Message == msg {
			total++
		}
	}

	return total
}

func createItems(t *testing.T, total int) []model.WorkItem {
	t.Helper()

	items := make([]model.WorkItem, total)
	for i := range items {
		items[i] = model.WorkItem{
			ContainerID: i,
			Name:        fmt.Sprintf("lig%d", i),
			Input: model.Variant{
				ContainerID: i,
				Structure:   fmt.Sprintf("C%d", i),
				Lineage:     []string{fmt.Sprintf("C%d (source)", i)},
			},
			Config: model.StageConfig{Stage: "test", MaxKeep: 5, Thoroughness: 1},
		}
	}

	return items
}

// fanOut produces ContainerID+1 variants per item.
func fanOut(_ context.Context, item model.WorkItem) ([]model.Variant, error) {
	out := make([]model.Variant, item.ContainerID+1)
	for i := range out {
		structure := fmt.Sprintf("%s-%d", item.Input.Structure, i)
		out[i] = item.Input.Derive(structure, structure+" (test)")
	}

	return out, nil
}

func structures(variants []model.Variant) []string {
	res := make([]string, len(variants))
	for i, v := range variants {
		res[i] = v.Structure
	}

	return res
}
