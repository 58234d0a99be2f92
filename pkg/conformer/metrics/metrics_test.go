package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-conformer/pkg/conformer/metrics"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	col, err := metrics.NewCollector(reg, "")
	require.NoError(t, err)

	stage := &model.StageInfo{Name: "protonate", Workers: 4}

	require.NoError(t, col.New())
	require.NoError(t, col.PrepareStage(model.StartStage, stage))
	require.NoError(t, col.OnItem(stage, time.Millisecond, 3, nil))
	require.NoError(t, col.OnItem(stage, time.Millisecond, 0, errors.New("boom")))
	require.NoError(t, col.AfterStage(stage, model.StageSummary{Items: 2, Failed: 1, Generated: 3, Kept: 2, Fallbacks: 1}))
	require.NoError(t, col.Finish(2*time.Second))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[fam.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[fam.GetName()] = m.GetGauge().GetValue()
			}
		}
	}

	assert.InDelta(t, 2, values["conformer_work_items_total"], 0)
	assert.InDelta(t, 1, values["conformer_work_item_failures_total"], 0)
	assert.InDelta(t, 3, values["conformer_variants_generated_total"], 0)
	assert.InDelta(t, 2, values["conformer_variants_kept_total"], 0)
	assert.InDelta(t, 1, values["conformer_fallbacks_total"], 0)
	assert.InDelta(t, 4, values["conformer_stage_workers"], 0)
	assert.InDelta(t, 2, values["conformer_run_duration_seconds"], 0)
	count, err := testutil.GatherAndCount(reg, "conformer_work_item_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollectorRegisteredTwice(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := metrics.NewCollector(reg, "run")
	require.NoError(t, err)

	_, err = metrics.NewCollector(reg, "run")
	var already prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &already)
}
