// Package drawer renders the stage graph of a run as a Graphviz DOT file.
package drawer

import (
	"io"
	"time"

	"github.com/askiada/go-conformer/pkg/conformer/measure"
)

// Drawer is an interface that defines the methods for drawing a run.
type Drawer interface {
	// AddStage adds a stage to the graph. Adding a stage twice is a no-op.
	AddStage(name string) error
	// AddLink adds a link between parent and child stages.
	AddLink(parent, child string) error
	// SetTotalTime labels the stage with its wall time.
	SetTotalTime(name string, total time.Duration) error
	// AddMeasure labels and colours the graph from measured timings.
	AddMeasure(msr measure.Measure) error
	// Render writes the DOT description.
	Render(w io.Writer) error
	// Draw writes the DOT description to the drawer's file.
	Draw() error
}
