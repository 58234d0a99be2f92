package conformer

import "github.com/pkg/errors"

var (
	ErrNoStages           = errors.New("pipeline has no stage")
	ErrStageNameMustBeSet = errors.New("stage name must be set")
	ErrReservedStageName  = errors.New("stage name is reserved")
	ErrGeneratorMustBeSet = errors.New("stage generator must be set")
	ErrDuplicateStage     = errors.New("stage already exists")
	ErrUnknownDependency  = errors.New("stage depends on an unknown stage")
	ErrMissingGenerator   = errors.New("engine has no generator for an enabled stage")
	ErrUnknownFallback    = errors.New("unknown fallback policy")
)
