package drawer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-conformer/pkg/conformer/drawer"
	"github.com/askiada/go-conformer/pkg/conformer/measure"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

func TestRender(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer("")
	require.NoError(t, d.AddStage("start"))
	require.NoError(t, d.AddStage("protonate"))
	require.NoError(t, d.AddStage("protonate"))
	require.NoError(t, d.AddLink("start", "protonate"))
	require.NoError(t, d.AddLink("start", "protonate"))
	require.Error(t, d.AddLink("protonate", "start"))
	require.NoError(t, d.SetTotalTime("start", time.Second))

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))

	out := buf.String()
	assert.Contains(t, out, "strict digraph {")
	assert.Contains(t, out, `"start" -> "protonate"`)
	assert.Contains(t, out, `<FONT POINT-SIZE="12">1s</FONT>`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"start" [`)), bytes.Index(buf.Bytes(), []byte(`"protonate" [`)))
}

func TestAddMeasureColoursEdges(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	msr.AddMetric("fast", 1).AddItem(time.Millisecond, 1, false)
	msr.AddMetric("slow", 1).AddItem(time.Second, 1, false)

	d := drawer.NewDOTDrawer("")
	for _, name := range []string{"start", "fast", "slow"} {
		require.NoError(t, d.AddStage(name))
	}
	require.NoError(t, d.AddLink("start", "fast"))
	require.NoError(t, d.AddLink("fast", "slow"))
	require.NoError(t, d.AddMeasure(msr))

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))

	out := buf.String()
	assert.Contains(t, out, `label="1ms"`)
	assert.Contains(t, out, `label="1s"`)
	assert.Contains(t, out, `color="#`)
	assert.Contains(t, out, "avg: 1s, items: 1, failed: 0, workers: 1")
}

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stages.dot")
	msr := measure.NewDefaultMeasure()
	opt := drawer.PipelineDrawer(drawer.NewDOTDrawer(path), msr)
	stage := &model.StageInfo{Name: "desalt", Workers: 1}

	require.NoError(t, opt.New())
	require.NoError(t, opt.PrepareStage(model.StartStage, stage))
	msr.AddMetric("desalt", 1).AddItem(time.Millisecond, 1, false)
	require.NoError(t, opt.OnItem(stage, time.Millisecond, 1, nil))
	require.NoError(t, opt.AfterStage(stage, model.StageSummary{}))
	require.NoError(t, opt.Finish(time.Second))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"start" -> "desalt"`)
	assert.Contains(t, string(content), `"desalt" -> "end"`)
}
