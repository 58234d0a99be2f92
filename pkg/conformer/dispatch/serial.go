package dispatch

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

type serial struct {
	logger *slog.Logger
}

func newSerial(logger *slog.Logger) *serial {
	return &serial{logger: logger}
}

func (s *serial) Run(ctx context.Context, items []model.WorkItem, fn GeneratorFunc) (*Result, error) {
	if fn == nil {
		return nil, ErrGeneratorMustBeSet
	}

	slots := make([][]model.Variant, len(items))
	reports := make([]ItemReport, len(items))

	for idx, item := range items {
		err := ctx.Err()
		if err != nil {
			return nil, errors.Wrapf(err, "serial dispatch stopped at item %d", idx)
		}

		slots[idx], reports[idx] = runItem(ctx, idx, item, fn)
	}

	return collect(s.logger, slots, reports), nil
}

func (s *serial) Mode() Mode { return Serial }

func (s *serial) Workers() int { return 1 }

func (s *serial) Close() error { return nil }
