package dispatch

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownMode         = errors.New("unknown dispatch mode")
	ErrInvalidWorkers      = errors.New("worker count must be at least 1")
	ErrRuntimeUnavailable  = errors.New("distributed runtime is not available")
	ErrClosed              = errors.New("dispatcher is closed")
	ErrGeneratorMustBeSet  = errors.New("generator must be set")
	ErrUnknownJob          = errors.New("unknown job")
	ErrRankOutOfRange      = errors.New("rank out of range")
	ErrWorldMustHaveMaster = errors.New("world size must be at least 1")
)

// ItemError is the error recorded for a work item that failed.
type ItemError struct {
	Err         error
	Index       int
	ContainerID int
	Panicked    bool
}

func (e *ItemError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("work item %d (container %d) panicked: %v", e.Index, e.ContainerID, e.Err)
	}

	return fmt.Sprintf("work item %d (container %d): %v", e.Index, e.ContainerID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause from github.com/pkg/errors walk through.
func (e *ItemError) Cause() error {
	return e.Err
}
