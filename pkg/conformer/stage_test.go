package conformer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-conformer/pkg/conformer"
)

func stageNames(t *testing.T, pipe *conformer.Pipeline) []string {
	t.Helper()

	stages, err := pipe.Stages()
	require.NoError(t, err)

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}

	return names
}

func TestAddStageErrors(t *testing.T) {
	t.Parallel()

	gen := identity("(x)")

	tests := map[string]struct {
		stage conformer.Stage
		want  error
	}{
		"missing name":      {stage: conformer.Stage{Generator: gen}, want: conformer.ErrStageNameMustBeSet},
		"reserved name":     {stage: conformer.Stage{Name: "start", Generator: gen}, want: conformer.ErrReservedStageName},
		"missing generator": {stage: conformer.Stage{Name: "protonate"}, want: conformer.ErrGeneratorMustBeSet},
		"duplicate":         {stage: conformer.Stage{Name: "desalt", Generator: gen}, want: conformer.ErrDuplicateStage},
		"unknown after":     {stage: conformer.Stage{Name: "protonate", Generator: gen, After: []string{"nope"}}, want: conformer.ErrUnknownDependency},
		"unknown fallback":  {stage: conformer.Stage{Name: "protonate", Generator: gen, Fallback: conformer.Fallback(9)}, want: conformer.ErrUnknownFallback},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := conformer.New(newConfig(t, nil))
			require.NoError(t, err)
			require.NoError(t, pipe.AddStage(conformer.Stage{Name: "desalt", Generator: gen}))

			err = pipe.AddStage(tc.stage)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, []string{"desalt"}, stageNames(t, pipe))
		})
	}
}

func TestStageOrder(t *testing.T) {
	t.Parallel()

	gen := identity("(x)")

	pipe, err := conformer.New(newConfig(t, nil))
	require.NoError(t, err)
	require.NoError(t, pipe.AddStages(
		conformer.Stage{Name: "desalt", Generator: gen},
		conformer.Stage{Name: "protonate", Generator: gen},
	))
	assert.Equal(t, []string{"desalt", "protonate"}, stageNames(t, pipe))

	pipe, err = conformer.New(newConfig(t, nil))
	require.NoError(t, err)
	require.NoError(t, pipe.AddStages(
		conformer.Stage{Name: "desalt", Generator: gen},
		conformer.Stage{Name: "embed_3d", Generator: gen},
		conformer.Stage{Name: "protonate", Generator: gen, After: []string{"desalt"}},
		conformer.Stage{Name: "tautomerize", Generator: gen, After: []string{"protonate"}},
		conformer.Stage{Name: "minimize", Generator: gen, After: []string{"embed_3d", "tautomerize"}},
	))

	assert.Equal(t, []string{"desalt", "embed_3d", "protonate", "tautomerize", "minimize"}, stageNames(t, pipe))
}

func TestStandardStages(t *testing.T) {
	t.Parallel()

	all := conformer.Generators{}
	for _, kind := range []conformer.StageKind{
		conformer.Desalt, conformer.Protonate, conformer.Tautomerize, conformer.EnumerateChiral,
		conformer.EnumerateDoubleBonds, conformer.RingConformers, conformer.Embed3D, conformer.Minimize,
	} {
		all[kind] = identity("(" + string(kind) + ")")
	}

	tests := map[string]struct {
		values map[string]any
		engine conformer.Generators
		want   []string
		err    error
	}{
		"everything": {
			engine: all,
			want: []string{
				"desalt", "protonate", "tautomerize", "enumerate_chiral",
				"enumerate_double_bonds", "ring_conformers", "embed_3d", "minimize",
			},
		},
		"skip flags": {
			values: map[string]any{
				"skip_adding_hydrogen":         true,
				"skip_making_tautomers":        true,
				"skip_ennumerate_double_bonds": true,
				"skip_optimize_geometry":       true,
			},
			engine: all,
			want:   []string{"desalt", "enumerate_chiral", "ring_conformers", "embed_3d"},
		},
		"2d only": {
			values: map[string]any{"2d_output_only": true},
			engine: all,
			want:   []string{"desalt", "protonate", "tautomerize", "enumerate_chiral", "enumerate_double_bonds"},
		},
		"missing generator": {
			engine: conformer.Generators{conformer.Desalt: identity("(desalted)")},
			err:    conformer.ErrMissingGenerator,
		},
		"missing generator of a skipped stage": {
			values: map[string]any{
				"skip_adding_hydrogen": true, "skip_making_tautomers": true, "skip_ennumerate_chiral_mol": true,
				"skip_ennumerate_double_bonds": true, "2d_output_only": true,
			},
			engine: conformer.Generators{conformer.Desalt: identity("(desalted)")},
			want:   []string{"desalt"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stages, err := conformer.StandardStages(newConfig(t, tc.values), tc.engine)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)

			names := make([]string, len(stages))
			for i, s := range stages {
				names[i] = s.Name
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestStandardFallbacks(t *testing.T) {
	t.Parallel()

	engine := conformer.Generators{
		conformer.Desalt:    identity("(desalted)"),
		conformer.Protonate: emptyFor("ethanol", identity("(protonated)")),
	}
	cfg := newConfig(t, map[string]any{
		"skip_making_tautomers": true, "skip_ennumerate_chiral_mol": true,
		"skip_ennumerate_double_bonds": true, "2d_output_only": true,
	})

	stages, err := conformer.StandardStages(cfg, engine)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, conformer.FallbackSource, stages[1].Fallback)

	pipe, err := conformer.New(cfg)
	require.NoError(t, err)
	require.NoError(t, pipe.AddStages(stages...))

	res, err := pipe.Run(t.Context(), records("CCO", "ethanol"))
	require.NoError(t, err)
	require.Len(t, res.Containers[0].Variants, 1)
	assert.Equal(t,
		[]string{"CCO (source)", "(desalted)", "(WARNING: could not assign protonation states)"},
		res.Containers[0].Variants[0].Lineage,
	)
}
