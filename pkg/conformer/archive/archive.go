// Package archive keeps the outcome of finished runs.
package archive

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/failure"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrMissingRun  = errors.New("snapshot has no run id")
)

// StageRecord is the summary of one stage.
type StageRecord struct {
	Name    string             `json:"name"`
	Summary model.StageSummary `json:"summary"`
}

// VariantRecord is one final variant with its identifier.
type VariantRecord struct {
	UniqueID    int               `json:"unique_id"`
	ContainerID int               `json:"container_id"`
	Name        string            `json:"name"`
	Structure   string            `json:"structure"`
	Lineage     []string          `json:"lineage"`
	Props       map[string]string `json:"props"`
}

// Snapshot is everything kept about a run.
type Snapshot struct {
	RunID    string
	Start    time.Time
	End      time.Time
	Stages   []StageRecord
	Variants []VariantRecord
	Failures []failure.Record
}

// Archive stores snapshots by run id.
type Archive interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, runID string) (Snapshot, error)
	Runs(ctx context.Context) ([]string, error)
	Close() error
}

// Variants flattens the variants of containers in container then variant order.
func Variants(containers []*model.Container) []VariantRecord {
	var res []VariantRecord

	for _, ctn := range containers {
		for _, v := range ctn.Variants {
			res = append(res, VariantRecord{
				UniqueID:    v.UniqueID,
				ContainerID: ctn.ID(),
				Name:        ctn.Name,
				Structure:   v.Structure,
				Lineage:     slices.Clone(v.Lineage),
				Props:       maps.Clone(v.Props),
			})
		}
	}

	return res
}

// Memory is an Archive held in memory.
type Memory struct {
	mu    sync.RWMutex
	order []string
	runs  map[string]Snapshot
}

func NewMemory() *Memory {
	return &Memory{runs: make(map[string]Snapshot)}
}

// Save stores a copy of snap, replacing any run with the same id.
func (m *Memory) Save(_ context.Context, snap Snapshot) error {
	if snap.RunID == "" {
		return ErrMissingRun
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[snap.RunID]; !ok {
		m.order = append(m.order, snap.RunID)
	}
	m.runs[snap.RunID] = snap.Clone()

	return nil
}

func (m *Memory) Load(_ context.Context, runID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.runs[runID]
	if !ok {
		return Snapshot{}, errors.Wrapf(ErrRunNotFound, "%s", runID)
	}

	return snap.Clone(), nil
}

// Runs returns the run ids in save order.
func (m *Memory) Runs(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.order), nil
}

func (m *Memory) Close() error {
	return nil
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	res := s
	res.Stages = slices.Clone(s.Stages)
	res.Failures = slices.Clone(s.Failures)
	res.Variants = slices.Clone(s.Variants)
	for i := range res.Variants {
		res.Variants[i].Lineage = slices.Clone(res.Variants[i].Lineage)
		res.Variants[i].Props = maps.Clone(res.Variants[i].Props)
	}

	return res
}

var _ Archive = (*Memory)(nil)
