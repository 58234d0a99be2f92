package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/measure"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

type runDrawer struct {
	Drawer
	m    measure.Measure
	last string
}

func (rd *runDrawer) New() error {
	err := rd.AddStage(model.StartStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	err = rd.AddStage(model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	rd.last = model.StartStage.Name

	return nil
}

func (rd *runDrawer) PrepareStage(parent, stage *model.StageInfo) error {
	err := rd.AddStage(stage.Name)
	if err != nil {
		return err
	}

	rd.last = stage.Name

	return rd.AddLink(parent.Name, stage.Name)
}

func (rd *runDrawer) OnItem(*model.StageInfo, time.Duration, int, error) error {
	return nil
}

func (rd *runDrawer) AfterStage(*model.StageInfo, model.StageSummary) error {
	return nil
}

func (rd *runDrawer) Finish(total time.Duration) error {
	err := rd.AddLink(rd.last, model.EndStage.Name)
	if err != nil {
		return err
	}

	err = rd.SetTotalTime(model.EndStage.Name, total)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if rd.m != nil {
		err = rd.AddMeasure(rd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = rd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw stage graph")
	}

	return nil
}

// PipelineDrawer draws the stages of a run once it is finished. When msr is
// not nil the graph is labelled with its timings.
func PipelineDrawer(d Drawer, msr measure.Measure) model.RunOption {
	return &runDrawer{Drawer: d, m: msr}
}
