package config

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported configuration file format")
	ErrMalformed         = errors.New("malformed configuration file")
)

// Issue is one problem found in the configuration.
type Issue struct {
	Key     string
	Message string
}

// ValidationError lists every offending key of a configuration.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.Key + ": " + issue.Message
	}

	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Keys returns the offending keys in report order.
func (e *ValidationError) Keys() []string {
	keys := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		keys[i] = issue.Key
	}

	return keys
}
