package model

import "time"

// StageInfo describes a stage to run options.
type StageInfo struct {
	Name         string
	Mode         string
	Workers      int
	MaxKeep      int
	Thoroughness int
}

// StageSummary is reported once per stage after selection.
type StageSummary struct {
	Items     int
	Failed    int
	Generated int
	Kept      int
	Fallbacks int
	Dispatch  time.Duration
	Selection time.Duration
}

// Pseudo stages framing the stage graph.
var (
	StartStage = &StageInfo{Name: "start"}
	EndStage   = &StageInfo{Name: "end"}
)
