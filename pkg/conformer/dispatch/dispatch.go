package dispatch

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

// GeneratorFunc expands one work item into variants.
type GeneratorFunc func(ctx context.Context, item model.WorkItem) ([]model.Variant, error)

// Dispatcher runs a generator over a batch of work items.
type Dispatcher interface {
	// Run calls fn once per item and returns the flattened results.
	// An empty batch returns an empty result.
	Run(ctx context.Context, items []model.WorkItem, fn GeneratorFunc) (*Result, error)
	// Mode returns the backend mode.
	Mode() Mode
	// Workers returns the number of items that can run at the same time.
	Workers() int
	// Close releases the workers. It is safe to call more than once.
	Close() error
}

// ItemReport records the outcome of one work item.
type ItemReport struct {
	Err         error
	Index       int
	ContainerID int
	Produced    int
	Elapsed     time.Duration
}

// Result is the outcome of a dispatch call.
type Result struct {
	// Variants holds the results of every item, in item order.
	Variants []model.Variant
	// Items holds one report per item, in item order.
	Items []ItemReport
}

// Failures returns the reports of the items that failed.
func (r *Result) Failures() []ItemReport {
	var failed []ItemReport

	for _, rep := range r.Items {
		if rep.Err != nil {
			failed = append(failed, rep)
		}
	}

	return failed
}

type options struct {
	logger  *slog.Logger
	runtime Runtime
}

// Option configures a Dispatcher.
type Option func(o *options)

// WithLogger sets the logger used to report failed items.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRuntime sets the runtime used by the distributed backend.
func WithRuntime(rt Runtime) Option {
	return func(o *options) {
		o.runtime = rt
	}
}

// New creates the dispatcher for mode. The serial backend always uses one
// worker. The distributed backend probes its runtime here and fails when it
// is missing; it never falls back to another backend.
func New(mode Mode, workers int, opts ...Option) (Dispatcher, error) {
	opt := &options{}
	for _, o := range opts {
		o(opt)
	}

	if opt.logger == nil {
		opt.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch mode {
	case Serial:
		if workers != 1 {
			opt.logger.Warn("serial mode runs on a single worker", "requested_workers", workers)
		}

		return newSerial(opt.logger), nil
	case Multiprocess:
		if workers < 1 {
			return nil, errors.Wrapf(ErrInvalidWorkers, "got %d", workers)
		}

		return newPool(workers, opt.logger), nil
	case Distributed:
		if workers < 1 {
			return nil, errors.Wrapf(ErrInvalidWorkers, "got %d", workers)
		}

		world, err := openWorld(opt.runtime, workers)
		if err != nil {
			return nil, err
		}

		return newDistributed(world, opt.logger)
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "%q", mode)
	}
}

// Probe checks that rt can back a distributed dispatcher.
func Probe(rt Runtime) error {
	if rt == nil {
		return errors.Wrap(ErrRuntimeUnavailable, "no runtime configured")
	}

	err := rt.Probe()
	if err != nil {
		return errors.Wrapf(ErrRuntimeUnavailable, "%s: %v", rt.Name(), err)
	}

	return nil
}

func openWorld(rt Runtime, workers int) (World, error) {
	err := Probe(rt)
	if err != nil {
		return nil, err
	}

	// one extra rank for the master
	world, err := rt.Open(workers + 1)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s world", rt.Name())
	}

	return world, nil
}

// Flatten concatenates the nested results of a batch, keeping their order.
func Flatten[O any](nested [][]O) []O {
	total := 0
	for _, n := range nested {
		total += len(n)
	}

	out := make([]O, 0, total)
	for _, n := range nested {
		out = append(out, n...)
	}

	return out
}

// runItem calls fn for one item. It never panics: a panic in fn is turned into
// an ItemError like any returned error.
func runItem(ctx context.Context, idx int, item model.WorkItem, fn GeneratorFunc) (out []model.Variant, rep ItemReport) {
	rep = ItemReport{Index: idx, ContainerID: item.ContainerID}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = nil
			rep.Err = &ItemError{Index: idx, ContainerID: item.ContainerID, Err: errors.Errorf("%v", r), Panicked: true}
		}

		rep.Elapsed = time.Since(start)
		rep.Produced = len(out)
	}()

	out, err := fn(ctx, item)
	if err != nil {
		out = nil
		rep.Err = &ItemError{Index: idx, ContainerID: item.ContainerID, Err: err}

		return out, rep
	}

	for i := range out {
		out[i].ContainerID = item.ContainerID
	}

	return out, rep
}

func collect(logger *slog.Logger, slots [][]model.Variant, reports []ItemReport) *Result {
	for _, rep := range reports {
		if rep.Err != nil {
			logger.Warn("work item failed", "index", rep.Index, "container_id", rep.ContainerID, "error", rep.Err)
		}
	}

	return &Result{
		Variants: Flatten(slots),
		Items:    reports,
	}
}
