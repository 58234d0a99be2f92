package dispatch_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-conformer/pkg/conformer/dispatch"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

func newDispatcher(t *testing.T, mode dispatch.Mode, workers int, opts ...dispatch.Option) dispatch.Dispatcher {
	t.Helper()

	opts = append(opts, dispatch.WithRuntime(dispatch.LocalRuntime{}))
	d, err := dispatch.New(mode, workers, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, d.Close())
	})

	return d
}

var allBackends = map[string]struct {
	mode    dispatch.Mode
	workers int
}{
	"serial":          {mode: dispatch.Serial, workers: 1},
	"multiprocess 1":  {mode: dispatch.Multiprocess, workers: 1},
	"multiprocess 4":  {mode: dispatch.Multiprocess, workers: 4},
	"multiprocess 64": {mode: dispatch.Multiprocess, workers: 64},
	"distributed 1":   {mode: dispatch.Distributed, workers: 1},
	"distributed 3":   {mode: dispatch.Distributed, workers: 3},
}

func TestBackendEquivalence(t *testing.T) {
	t.Parallel()

	items := createItems(t, 12)
	ref, err := newDispatcher(t, dispatch.Serial, 1).Run(t.Context(), items, fanOut)
	require.NoError(t, err)

	for name, tc := range allBackends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := newDispatcher(t, tc.mode, tc.workers).Run(t.Context(), items, fanOut)
			require.NoError(t, err)
			assert.ElementsMatch(t, structures(ref.Variants), structures(got.Variants))
			// results are flattened in item order whatever the backend
			assert.Equal(t, structures(ref.Variants), structures(got.Variants))
			assert.Equal(t, ref.Variants, got.Variants)
		})
	}
}

func TestFlatteningCounts(t *testing.T) {
	t.Parallel()

	for name, tc := range allBackends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			items := createItems(t, 7)
			got, err := newDispatcher(t, tc.mode, tc.workers).Run(t.Context(), items, fanOut)
			require.NoError(t, err)

			// item i produces i+1 variants
			assert.Len(t, got.Variants, 28)
			require.Len(t, got.Items, 7)
			for i, rep := range got.Items {
				assert.Equal(t, i, rep.Index)
				assert.Equal(t, i+1, rep.Produced)
				assert.NoError(t, rep.Err)
			}
			for _, v := range got.Variants {
				assert.Equal(t, items[v.ContainerID].Input.Lineage[0], v.Lineage[0])
			}
		})
	}
}

func TestOneFailingItemAmongTen(t *testing.T) {
	t.Parallel()

	for name, tc := range allBackends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			handler := &recordingHandler{}
			d := newDispatcher(t, tc.mode, tc.workers, dispatch.WithLogger(slog.New(handler)))
			items := createItems(t, 10)

			got, err := d.Run(t.Context(), items, func(ctx context.Context, item model.WorkItem) ([]model.Variant, error) {
				if item.ContainerID == 6 {
					return nil, assert.AnError
				}

				return []model.Variant{item.Input.Annotate("ok")}, nil
			})
			require.NoError(t, err)
			assert.Len(t, got.Variants, 9)
			for _, v := range got.Variants {
				assert.NotEqual(t, 6, v.ContainerID)
			}

			failed := got.Failures()
			require.Len(t, failed, 1)
			assert.Equal(t, 6, failed[0].ContainerID)
			assert.Equal(t, 0, failed[0].Produced)
			assert.Equal(t, 1, handler.count("work item failed"))

			var itemErr *dispatch.ItemError
			require.ErrorAs(t, failed[0].Err, &itemErr)
			assert.False(t, itemErr.Panicked)
			if tc.mode != dispatch.Distributed {
				assert.ErrorIs(t, failed[0].Err, assert.AnError)
			}
		})
	}
}

func TestPanickingItemIsIsolated(t *testing.T) {
	t.Parallel()

	for name, tc := range allBackends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d := newDispatcher(t, tc.mode, tc.workers)
			got, err := d.Run(t.Context(), createItems(t, 5), func(ctx context.Context, item model.WorkItem) ([]model.Variant, error) {
				if item.ContainerID == 2 {
					panic("boom")
				}

				return []model.Variant{item.Input}, nil
			})
			require.NoError(t, err)
			assert.Len(t, got.Variants, 4)

			failed := got.Failures()
			require.Len(t, failed, 1)

			var itemErr *dispatch.ItemError
			require.True(t, errors.As(failed[0].Err, &itemErr))
			assert.True(t, itemErr.Panicked)
			assert.Contains(t, itemErr.Error(), "boom")
		})
	}
}

func TestEmptyBatch(t *testing.T) {
	t.Parallel()

	for name, tc := range allBackends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := newDispatcher(t, tc.mode, tc.workers).Run(t.Context(), nil, fanOut)
			require.NoError(t, err)
			assert.Empty(t, got.Variants)
			assert.Empty(t, got.Items)
		})
	}
}

func TestRunNilGenerator(t *testing.T) {
	t.Parallel()

	for name, tc := range allBackends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := newDispatcher(t, tc.mode, tc.workers).Run(t.Context(), createItems(t, 1), nil)
			assert.ErrorIs(t, err, dispatch.ErrGeneratorMustBeSet)
		})
	}
}

func TestDispatcherReusedAcrossStages(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, dispatch.Distributed, 2)
	for stage := 0; stage < 3; stage++ {
		got, err := d.Run(t.Context(), createItems(t, 4), fanOut)
		require.NoError(t, err)
		assert.Len(t, got.Variants, 10)
	}
}

func TestSerialCoercesWorkers(t *testing.T) {
	t.Parallel()

	d, err := dispatch.New(dispatch.Serial, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Workers())
	assert.Equal(t, dispatch.Serial, d.Mode())
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mode    dispatch.Mode
		workers int
		opts    []dispatch.Option
		want    error
	}{
		"unknown mode":           {mode: "gpu", workers: 1, want: dispatch.ErrUnknownMode},
		"multiprocess no worker": {mode: dispatch.Multiprocess, workers: 0, want: dispatch.ErrInvalidWorkers},
		"distributed no runtime": {mode: dispatch.Distributed, workers: 2, want: dispatch.ErrRuntimeUnavailable},
		"distributed probe fails": {
			mode: dispatch.Distributed, workers: 2,
			opts: []dispatch.Option{dispatch.WithRuntime(missingRuntime{})},
			want: dispatch.ErrRuntimeUnavailable,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := dispatch.New(tc.mode, tc.workers, tc.opts...)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		rt   dispatch.Runtime
		want error
	}{
		"local":   {rt: dispatch.LocalRuntime{}},
		"missing": {rt: missingRuntime{}, want: dispatch.ErrRuntimeUnavailable},
		"nil":     {want: dispatch.ErrRuntimeUnavailable},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := dispatch.Probe(tc.rt)
			if tc.want == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDistributedCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	d, err := dispatch.New(dispatch.Distributed, 3, dispatch.WithRuntime(dispatch.LocalRuntime{}))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Workers())
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.Run(t.Context(), createItems(t, 2), fanOut)
	assert.ErrorIs(t, err, dispatch.ErrClosed)
}

func TestSerialCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newDispatcher(t, dispatch.Serial, 1).Run(ctx, createItems(t, 3), fanOut)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want dispatch.Mode
	}{
		"serial":         {want: dispatch.Serial},
		"Multiprocess":   {want: dispatch.Multiprocess},
		"multithreading": {want: dispatch.Multiprocess},
		"distributed":    {want: dispatch.Distributed},
		" MPI ":          {want: dispatch.Distributed},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := dispatch.ParseMode(name)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := dispatch.ParseMode("threads")
	assert.ErrorIs(t, err, dispatch.ErrUnknownMode)
}

type missingRuntime struct{}

func (missingRuntime) Name() string { return "missing" }

func (missingRuntime) Probe() error { return errors.New("no launcher found") }

func (missingRuntime) Open(int) (dispatch.World, error) { return nil, errors.New("unreachable") }
