package dispatch

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

// pool is the multiprocess backend: a bounded set of worker goroutines
// consuming item indexes from a shared channel.
type pool struct {
	logger  *slog.Logger
	workers int
}

func newPool(workers int, logger *slog.Logger) *pool {
	return &pool{workers: workers, logger: logger}
}

func consumeItems(ctx context.Context, goIdx int, indexes <-chan int, items []model.WorkItem, fn GeneratorFunc, slots [][]model.Variant, reports []ItemReport) error {
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "worker %d", goIdx)
		case idx, ok := <-indexes:
			if !ok {
				return nil
			}
			// each index is owned by exactly one consumer
			slots[idx], reports[idx] = runItem(ctx, idx, items[idx], fn)
		}
	}
}

func (p *pool) Run(ctx context.Context, items []model.WorkItem, fn GeneratorFunc) (*Result, error) {
	if fn == nil {
		return nil, ErrGeneratorMustBeSet
	}

	slots := make([][]model.Variant, len(items))
	reports := make([]ItemReport, len(items))
	if len(items) == 0 {
		return collect(p.logger, slots, reports), nil
	}

	workers := min(p.workers, len(items))
	indexes := make(chan int)

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(workers + 1)

	errGrp.Go(func() error {
		defer close(indexes)

		for idx := range items {
			select {
			case <-dCtx.Done():
				return errors.Wrap(dCtx.Err(), "unable to feed work items")
			case indexes <- idx:
			}
		}

		return nil
	})

	for goIdx := 0; goIdx < workers; goIdx++ {
		localGoIdx := goIdx
		errGrp.Go(func() error {
			return consumeItems(dCtx, localGoIdx, indexes, items, fn, slots, reports)
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return nil, errors.Wrap(err, "multiprocess dispatch")
	}

	return collect(p.logger, slots, reports), nil
}

func (p *pool) Mode() Mode { return Multiprocess }

func (p *pool) Workers() int { return p.workers }

func (p *pool) Close() error { return nil }
