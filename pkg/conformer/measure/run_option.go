package measure

import (
	"time"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

type runMeasure struct {
	Measure
}

func (rm *runMeasure) New() error {
	rm.AddMetric(model.StartStage.Name, 1)
	rm.AddMetric(model.EndStage.Name, 1)

	return nil
}

func (rm *runMeasure) PrepareStage(_, stage *model.StageInfo) error {
	rm.AddMetric(stage.Name, stage.Workers)

	return nil
}

func (rm *runMeasure) OnItem(stage *model.StageInfo, elapsed time.Duration, produced int, err error) error {
	if mt := rm.Metric(stage.Name); mt != nil {
		mt.AddItem(elapsed, produced, err != nil)
	}

	return nil
}

func (rm *runMeasure) AfterStage(stage *model.StageInfo, summary model.StageSummary) error {
	if mt := rm.Metric(stage.Name); mt != nil {
		mt.SetTotalDuration(summary.Dispatch + summary.Selection)
	}

	return nil
}

func (rm *runMeasure) Finish(total time.Duration) error {
	if mt := rm.Metric(model.EndStage.Name); mt != nil {
		mt.SetTotalDuration(total)
	}

	return nil
}

// PipelineMeasure records the stage timings of a run into m.
func PipelineMeasure(m Measure) model.RunOption {
	return &runMeasure{m}
}
