package dispatch

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode selects the execution backend.
type Mode string

const (
	Serial       Mode = "serial"
	Multiprocess Mode = "multiprocess"
	Distributed  Mode = "distributed"
)

var modeAliases = map[string]Mode{
	"serial":         Serial,
	"multiprocess":   Multiprocess,
	"multithreading": Multiprocess,
	"distributed":    Distributed,
	"mpi":            Distributed,
}

// ParseMode parses a mode name. It is case insensitive and accepts
// "multithreading" and "mpi" as aliases.
func ParseMode(name string) (Mode, error) {
	mode, ok := modeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", errors.Wrapf(ErrUnknownMode, "%q", name)
	}

	return mode, nil
}

func (m Mode) String() string {
	return string(m)
}
