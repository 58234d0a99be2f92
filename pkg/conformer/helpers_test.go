package conformer_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-conformer/pkg/conformer/config"
	"github.com/askiada/go-conformer/pkg/conformer/dispatch"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

var errGeneration = errors.New("generation failed")

func newConfig(t *testing.T, values map[string]any) config.Config {
	t.Helper()

	merged := map[string]any{"multithread_mode": "serial", "log_level": "error"}
	for k, v := range values {
		merged[k] = v
	}

	cfg, err := config.FromMap(merged)
	require.NoError(t, err)

	return cfg
}

func records(pairs ...string) []model.InputRecord {
	res := make([]model.InputRecord, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		res = append(res, model.InputRecord{Structure: pairs[i], Name: pairs[i+1]})
	}

	return res
}

// identity returns the input with note appended to its lineage.
func identity(note string) dispatch.GeneratorFunc {
	return func(_ context.Context, item model.WorkItem) ([]model.Variant, error) {
		return []model.Variant{item.Input.Annotate(note)}, nil
	}
}

// expand returns n distinct variants of the input.
func expand(n int, note string) dispatch.GeneratorFunc {
	return func(_ context.Context, item model.WorkItem) ([]model.Variant, error) {
		out := make([]model.Variant, n)
		for i := range out {
			structure := fmt.Sprintf("%s.%s%d", item.Input.Structure, "N", i)
			out[i] = item.Input.Derive(structure, structure+" "+note)
		}

		return out, nil
	}
}

// failFor fails the items of the container named name and delegates the rest.
func failFor(name string, next dispatch.GeneratorFunc) dispatch.GeneratorFunc {
	return func(ctx context.Context, item model.WorkItem) ([]model.Variant, error) {
		if item.Name == name {
			return nil, errors.Wrap(errGeneration, name)
		}

		return next(ctx, item)
	}
}

// emptyFor returns no variant for the container named name.
func emptyFor(name string, next dispatch.GeneratorFunc) dispatch.GeneratorFunc {
	return func(ctx context.Context, item model.WorkItem) ([]model.Variant, error) {
		if item.Name == name {
			return nil, nil
		}

		return next(ctx, item)
	}
}

func counting(calls *atomic.Int64, next dispatch.GeneratorFunc) dispatch.GeneratorFunc {
	return func(ctx context.Context, item model.WorkItem) ([]model.Variant, error) {
		calls.Add(1)

		return next(ctx, item)
	}
}

type snapshot struct {
	Name     string
	Variants []string
	Lineages [][]string
	IDs      []int
}

func snapshots(containers []*model.Container) []snapshot {
	res := make([]snapshot, len(containers))
	for i, ctn := range containers {
		snap := snapshot{Name: ctn.Name}
		for _, v := range ctn.Variants {
			snap.Variants = append(snap.Variants, v.Structure)
			snap.Lineages = append(snap.Lineages, v.Lineage)
			snap.IDs = append(snap.IDs, v.UniqueID)
		}
		res[i] = snap
	}

	return res
}
