package conformer

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/config"
	"github.com/askiada/go-conformer/pkg/conformer/dispatch"
)

// StageKind names a standard stage.
type StageKind string

const (
	Desalt               StageKind = "desalt"
	Protonate            StageKind = "protonate"
	Tautomerize          StageKind = "tautomerize"
	EnumerateChiral      StageKind = "enumerate_chiral"
	EnumerateDoubleBonds StageKind = "enumerate_double_bonds"
	RingConformers       StageKind = "ring_conformers"
	Embed3D              StageKind = "embed_3d"
	Minimize             StageKind = "minimize"
)

// Engine supplies the chemistry of the standard stages.
type Engine interface {
	Generator(kind StageKind) (dispatch.GeneratorFunc, bool)
}

// Generators is an Engine backed by a map.
type Generators map[StageKind]dispatch.GeneratorFunc

func (g Generators) Generator(kind StageKind) (dispatch.GeneratorFunc, bool) {
	fn, ok := g[kind]

	return fn, ok && fn != nil
}

type standardStage struct {
	kind     StageKind
	fallback Fallback
	note     string
	enabled  func(cfg config.Config) bool
}

var standardStages = []standardStage{
	{kind: Desalt, fallback: FallbackNone, enabled: always},
	{
		kind:     Protonate,
		fallback: FallbackSource,
		note:     "(WARNING: could not assign protonation states)",
		enabled:  func(cfg config.Config) bool { return !cfg.SkipAddingHydrogen },
	},
	{
		kind:     Tautomerize,
		fallback: FallbackCarryOver,
		enabled:  func(cfg config.Config) bool { return !cfg.SkipMakingTautomers },
	},
	{
		kind:     EnumerateChiral,
		fallback: FallbackCarryOver,
		enabled:  func(cfg config.Config) bool { return !cfg.SkipEnumerateChiralMol },
	},
	{
		kind:     EnumerateDoubleBonds,
		fallback: FallbackCarryOver,
		enabled:  func(cfg config.Config) bool { return !cfg.SkipEnumerateDoubleBonds },
	},
	{
		kind:     RingConformers,
		fallback: FallbackCarryOver,
		enabled:  func(cfg config.Config) bool { return !cfg.SkipAlternateRingConformations && !cfg.Only2D },
	},
	{
		kind:     Embed3D,
		fallback: FallbackNone,
		enabled:  func(cfg config.Config) bool { return !cfg.Only2D },
	},
	{
		kind:     Minimize,
		fallback: FallbackCarryOver,
		enabled:  func(cfg config.Config) bool { return !cfg.Only2D && !cfg.SkipOptimizeGeometry },
	},
}

func always(config.Config) bool { return true }

// StandardStages returns the enabled standard stages in run order. An enabled
// stage the engine has no generator for is a configuration error.
func StandardStages(cfg config.Config, engine Engine) ([]Stage, error) {
	var (
		stages  []Stage
		missing []string
	)

	for _, std := range standardStages {
		if !std.enabled(cfg) {
			continue
		}

		fn, ok := engine.Generator(std.kind)
		if !ok {
			missing = append(missing, string(std.kind))

			continue
		}

		stages = append(stages, Stage{
			Name:         string(std.kind),
			Generator:    fn,
			Fallback:     std.fallback,
			FallbackNote: std.note,
		})
	}

	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrMissingGenerator, "%v", missing)
	}

	return stages, nil
}
