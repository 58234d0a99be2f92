package conformer

import (
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/dispatch"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

// Fallback tells what a container gets when a stage leaves it without any
// variant.
type Fallback int

const (
	// FallbackNone leaves the container empty.
	FallbackNone Fallback = iota
	// FallbackSource restores the source structure of the container.
	FallbackSource
	// FallbackCarryOver keeps the variants the stage was given.
	FallbackCarryOver
)

func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "none"
	case FallbackSource:
		return "source"
	case FallbackCarryOver:
		return "carry_over"
	default:
		return fmt.Sprintf("Fallback(%d)", int(f))
	}
}

// Stage is one expansion step of the pipeline.
type Stage struct {
	Name      string
	Generator dispatch.GeneratorFunc
	// After lists the stages that must run first. It defaults to the stage
	// added just before.
	After    []string
	Fallback Fallback
	// FallbackNote is the lineage entry of fallback variants.
	FallbackNote string
}

func (s Stage) fallbackNote() string {
	if s.FallbackNote != "" {
		return s.FallbackNote
	}

	return fmt.Sprintf("(WARNING: %s produced no variants)", s.Name)
}

func stageHash(s Stage) string {
	return s.Name
}

// AddStage appends a stage to the stage graph.
func (p *Pipeline) AddStage(stage Stage) error {
	switch {
	case stage.Name == "":
		return ErrStageNameMustBeSet
	case stage.Name == model.StartStage.Name || stage.Name == model.EndStage.Name:
		return errors.Wrapf(ErrReservedStageName, "%q", stage.Name)
	case stage.Generator == nil:
		return errors.Wrapf(ErrGeneratorMustBeSet, "stage %s", stage.Name)
	case stage.Fallback < FallbackNone || stage.Fallback > FallbackCarryOver:
		return errors.Wrapf(ErrUnknownFallback, "stage %s: %s", stage.Name, stage.Fallback)
	}

	after := stage.After
	if len(after) == 0 && p.last != "" {
		after = []string{p.last}
	}

	for _, dep := range after {
		_, err := p.graph.Vertex(dep)
		if err != nil {
			return errors.Wrapf(ErrUnknownDependency, "stage %s after %s", stage.Name, dep)
		}
	}

	err := p.graph.AddVertex(stage)
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrapf(ErrDuplicateStage, "%s", stage.Name)
	}
	if err != nil {
		return errors.Wrapf(err, "unable to add stage %s", stage.Name)
	}

	for _, dep := range after {
		err := p.graph.AddEdge(dep, stage.Name)
		if err != nil {
			return errors.Wrapf(err, "unable to link stage %s to %s", dep, stage.Name)
		}
	}

	p.last = stage.Name

	return nil
}

// AddStages adds stages in order.
func (p *Pipeline) AddStages(stages ...Stage) error {
	for _, stage := range stages {
		err := p.AddStage(stage)
		if err != nil {
			return err
		}
	}

	return nil
}

// Stages returns the stages in run order: dependencies first, ties broken by
// insertion order.
func (p *Pipeline) Stages() ([]Stage, error) {
	position := func(name string) int {
		pos, err := p.store.Position(name)
		if err != nil {
			return -1
		}

		return pos
	}

	names, err := graph.StableTopologicalSort(p.graph, func(a, b string) bool {
		return position(a) < position(b)
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to order stages")
	}

	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		stage, err := p.graph.Vertex(name)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to get stage %s", name)
		}
		stages = append(stages, stage)
	}

	return stages, nil
}
