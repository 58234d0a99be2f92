package model

import "time"

// RunOption defines the interface for options observing a pipeline run.
type RunOption interface {
	// New initialises the option.
	New() error
	// PrepareStage runs once per stage when it is added to the pipeline.
	PrepareStage(parent, stage *StageInfo) error
	// OnItem runs for every work item once the dispatch call has returned.
	OnItem(stage *StageInfo, elapsed time.Duration, produced int, err error) error
	// AfterStage runs after the surviving variants have been committed.
	AfterStage(stage *StageInfo, summary StageSummary) error
	// Finish runs after the run is finished.
	Finish(total time.Duration) error
}
