package registry

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownContainer = errors.New("unknown container")
	ErrMissingLineage   = errors.New("variant has no lineage")
	ErrWrongContainer   = errors.New("variant belongs to another container")
	ErrFinalized        = errors.New("final identifiers already assigned")
)

// Reason tells why an input record was rejected.
type Reason string

const (
	ReasonEmpty          Reason = "empty structure"
	ReasonUnparsable     Reason = "unparsable structure"
	ReasonUnassignedBond Reason = "unassigned bond order"
)

// RejectionError is returned by Register for a record that cannot become a
// container.
type RejectionError struct {
	Err       error
	Structure string
	Name      string
	Reason    Reason
}

func (e *RejectionError) Error() string {
	msg := fmt.Sprintf("rejected %q (%s): %s", e.Structure, e.Name, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}
