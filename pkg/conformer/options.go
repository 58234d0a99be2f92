package conformer

import (
	"log/slog"

	"github.com/askiada/go-conformer/pkg/conformer/archive"
	"github.com/askiada/go-conformer/pkg/conformer/dispatch"
	"github.com/askiada/go-conformer/pkg/conformer/model"
	"github.com/askiada/go-conformer/pkg/conformer/registry"
	"github.com/askiada/go-conformer/pkg/conformer/selector"
)

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithLogger sets the logger shared by every component of a run.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRuntime sets the runtime of the distributed backend.
func WithRuntime(rt dispatch.Runtime) Option {
	return func(p *Pipeline) {
		p.runtime = rt
	}
}

// WithSelector replaces the selector built from the configuration seed.
func WithSelector(sel *selector.Selector) Option {
	return func(p *Pipeline) {
		p.selector = sel
	}
}

// WithNormalizer sets the structure normalizer used at registration.
func WithNormalizer(n registry.Normalizer) Option {
	return func(p *Pipeline) {
		p.normalizer = n
	}
}

// WithRunOptions adds observers of the run.
func WithRunOptions(opts ...model.RunOption) Option {
	return func(p *Pipeline) {
		p.runOpts = append(p.runOpts, opts...)
	}
}

// WithArchive stores every finished run in a. The caller keeps ownership.
func WithArchive(a archive.Archive) Option {
	return func(p *Pipeline) {
		p.archive = a
	}
}
