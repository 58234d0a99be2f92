// Package config loads and validates the run configuration.
//
// The configuration is a flat key/value mapping. Every key must be known and every value must have the
// type of the key; the only conversion allowed is an integer given for a real-number key. All problems
// are reported together in a single *ValidationError. Once loaded, a Config is a plain value and is never
// changed.
package config

import (
	"path/filepath"
	"runtime"

	"github.com/askiada/go-conformer/internal/logging"
	"github.com/askiada/go-conformer/pkg/conformer/dispatch"
	"github.com/askiada/go-conformer/pkg/conformer/model"
)

const (
	defaultMinPH                  = 6.4
	defaultMaxPH                  = 8.4
	defaultPHStdDev               = 1.0
	defaultThoroughness           = 3
	defaultMaxVariantsPerCompound = 5
	defaultNumProcessors          = -1
	defaultMode                   = "multiprocess"
	defaultLogLevel               = "info"
	defaultLogFormat              = "text"
	defaultLogOutput              = "stderr"
	defaultOutputName             = "output.sdf"
)

// Config is the validated run configuration.
type Config struct {
	Source       string `json:"source" yaml:"source"`
	OutputFolder string `json:"output_folder" yaml:"output_folder"`
	OutputFile   string `json:"output_file" yaml:"output_file"`
	ArchivePath  string `json:"archive_path" yaml:"archive_path"`
	StageDiagram string `json:"stage_diagram" yaml:"stage_diagram"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	LogFormat    string `json:"log_format" yaml:"log_format"`
	LogOutput    string `json:"log_output" yaml:"log_output"`

	Mode dispatch.Mode `json:"multithread_mode" yaml:"multithread_mode"`

	// NumProcessors is the resolved worker count, never below 1.
	NumProcessors          int `json:"num_processors" yaml:"num_processors"`
	Thoroughness           int `json:"thoroughness" yaml:"thoroughness"`
	MaxVariantsPerCompound int `json:"max_variants_per_compound" yaml:"max_variants_per_compound"`
	SelectionSeed          int `json:"selection_seed" yaml:"selection_seed"`

	MinPH    float64 `json:"min_ph" yaml:"min_ph"`
	MaxPH    float64 `json:"max_ph" yaml:"max_ph"`
	PHStdDev float64 `json:"ph_std_dev" yaml:"ph_std_dev"`

	SeparateOutputFiles            bool `json:"separate_output_files" yaml:"separate_output_files"`
	OutputPDB                      bool `json:"output_pdb" yaml:"output_pdb"`
	SecondEmbed                    bool `json:"second_embed" yaml:"second_embed"`
	Only2D                         bool `json:"2d_output_only" yaml:"2d_output_only"`
	SkipOptimizeGeometry           bool `json:"skip_optimize_geometry" yaml:"skip_optimize_geometry"`
	SkipAlternateRingConformations bool `json:"skip_alternate_ring_conformations" yaml:"skip_alternate_ring_conformations"`
	SkipAddingHydrogen             bool `json:"skip_adding_hydrogen" yaml:"skip_adding_hydrogen"`
	SkipMakingTautomers            bool `json:"skip_making_tautomers" yaml:"skip_making_tautomers"`
	SkipEnumerateChiralMol         bool `json:"skip_ennumerate_chiral_mol" yaml:"skip_ennumerate_chiral_mol"`
	SkipEnumerateDoubleBonds       bool `json:"skip_ennumerate_double_bonds" yaml:"skip_ennumerate_double_bonds"`
	CachePrerun                    bool `json:"cache_prerun" yaml:"cache_prerun"`
	Test                           bool `json:"test" yaml:"test"`

	// Notices lists adjustments made while finalizing, for the user.
	Notices []string `json:"-" yaml:"-"`
}

// raw is the configuration before finalization.
type raw struct {
	Config
	mode          string
	numProcessors int
}

func defaults() raw {
	return raw{
		Config: Config{
			LogLevel:               defaultLogLevel,
			LogFormat:              defaultLogFormat,
			LogOutput:              defaultLogOutput,
			Thoroughness:           defaultThoroughness,
			MaxVariantsPerCompound: defaultMaxVariantsPerCompound,
			MinPH:                  defaultMinPH,
			MaxPH:                  defaultMaxPH,
			PHStdDev:               defaultPHStdDev,
		},
		mode:          defaultMode,
		numProcessors: defaultNumProcessors,
	}
}

// Default returns the configuration used when no key is set.
func Default() Config {
	cfg, err := FromMap(nil)
	if err != nil {
		panic(err)
	}

	return cfg
}

// StageConfig returns the configuration handed to the generators of stage.
func (c Config) StageConfig(stage string) model.StageConfig {
	return model.StageConfig{
		Stage: stage,
		Protonation: model.ProtonationSettings{
			MinPH:    c.MinPH,
			MaxPH:    c.MaxPH,
			StdDevPH: c.PHStdDev,
		},
		MaxKeep:      c.MaxVariantsPerCompound,
		Thoroughness: c.Thoroughness,
		SecondEmbed:  c.SecondEmbed,
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: c.LogOutput,
	}
}

func (r *raw) finalize() []Issue {
	var issues []Issue

	mode, err := dispatch.ParseMode(r.mode)
	if err != nil {
		issues = append(issues, Issue{Key: "multithread_mode", Message: err.Error()})
	}
	r.Mode = mode

	switch {
	case r.numProcessors == -1:
		r.NumProcessors = runtime.NumCPU()
	case r.numProcessors < 1:
		issues = append(issues, Issue{Key: "num_processors", Message: "must be -1 or at least 1"})
	default:
		r.NumProcessors = r.numProcessors
	}

	if r.Mode == dispatch.Serial && r.NumProcessors != 1 {
		r.Notices = append(r.Notices, "multithread_mode is serial, running on a single processor")
		r.NumProcessors = 1
	}

	if r.MaxVariantsPerCompound < 1 {
		issues = append(issues, Issue{Key: "max_variants_per_compound", Message: "must be at least 1"})
	}
	if r.Thoroughness < 1 {
		issues = append(issues, Issue{Key: "thoroughness", Message: "must be at least 1"})
	}
	if r.MinPH > r.MaxPH {
		issues = append(issues, Issue{Key: "min_ph", Message: "must not be greater than max_ph"})
	}
	if r.PHStdDev < 0 {
		issues = append(issues, Issue{Key: "ph_std_dev", Message: "must not be negative"})
	}
	if r.SelectionSeed < 0 {
		issues = append(issues, Issue{Key: "selection_seed", Message: "must not be negative"})
	}

	if r.OutputFolder == "" && r.Source != "" && r.OutputFile == "" {
		r.OutputFolder = filepath.Join(filepath.Dir(r.Source), "output")
	}
	if r.OutputPDB && r.OutputFolder == "" {
		issues = append(issues, Issue{Key: "output_pdb", Message: "requires output_folder"})
	}
	if r.SeparateOutputFiles && r.OutputFolder == "" {
		issues = append(issues, Issue{Key: "separate_output_files", Message: "requires output_folder"})
	}
	if r.OutputFile == "" && r.OutputFolder != "" {
		r.OutputFile = filepath.Join(r.OutputFolder, defaultOutputName)
	}

	switch r.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, Issue{Key: "log_level", Message: "must be one of debug, info, warn, error"})
	}
	switch r.LogFormat {
	case "json", "text":
	default:
		issues = append(issues, Issue{Key: "log_format", Message: "must be one of json, text"})
	}

	return issues
}
