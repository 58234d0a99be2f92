package config

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

type kind string

const (
	kindString kind = "string"
	kindBool   kind = "bool"
	kindInt    kind = "int"
	kindFloat  kind = "float"
)

type field struct {
	kind kind
	set  func(r *raw, v any)
}

func stringField(dst func(r *raw) *string) field {
	return field{kind: kindString, set: func(r *raw, v any) { *dst(r) = v.(string) }}
}

func boolField(dst func(r *raw) *bool) field {
	return field{kind: kindBool, set: func(r *raw, v any) { *dst(r) = v.(bool) }}
}

func intField(dst func(r *raw) *int) field {
	return field{kind: kindInt, set: func(r *raw, v any) { *dst(r) = v.(int) }}
}

func floatField(dst func(r *raw) *float64) field {
	return field{kind: kindFloat, set: func(r *raw, v any) { *dst(r) = v.(float64) }}
}

var schema = map[string]field{
	"source":        stringField(func(r *raw) *string { return &r.Source }),
	"output_folder": stringField(func(r *raw) *string { return &r.OutputFolder }),
	"output_file":   stringField(func(r *raw) *string { return &r.OutputFile }),
	"archive_path":  stringField(func(r *raw) *string { return &r.ArchivePath }),
	"stage_diagram": stringField(func(r *raw) *string { return &r.StageDiagram }),
	"log_level":     stringField(func(r *raw) *string { return &r.LogLevel }),
	"log_format":    stringField(func(r *raw) *string { return &r.LogFormat }),
	"log_output":    stringField(func(r *raw) *string { return &r.LogOutput }),

	"multithread_mode": stringField(func(r *raw) *string { return &r.mode }),

	"num_processors":            intField(func(r *raw) *int { return &r.numProcessors }),
	"thoroughness":              intField(func(r *raw) *int { return &r.Thoroughness }),
	"max_variants_per_compound": intField(func(r *raw) *int { return &r.MaxVariantsPerCompound }),
	"selection_seed":            intField(func(r *raw) *int { return &r.SelectionSeed }),

	"min_ph":     floatField(func(r *raw) *float64 { return &r.MinPH }),
	"max_ph":     floatField(func(r *raw) *float64 { return &r.MaxPH }),
	"ph_std_dev": floatField(func(r *raw) *float64 { return &r.PHStdDev }),

	"separate_output_files":             boolField(func(r *raw) *bool { return &r.SeparateOutputFiles }),
	"output_pdb":                        boolField(func(r *raw) *bool { return &r.OutputPDB }),
	"second_embed":                      boolField(func(r *raw) *bool { return &r.SecondEmbed }),
	"2d_output_only":                    boolField(func(r *raw) *bool { return &r.Only2D }),
	"skip_optimize_geometry":            boolField(func(r *raw) *bool { return &r.SkipOptimizeGeometry }),
	"skip_alternate_ring_conformations": boolField(func(r *raw) *bool { return &r.SkipAlternateRingConformations }),
	"skip_adding_hydrogen":              boolField(func(r *raw) *bool { return &r.SkipAddingHydrogen }),
	"skip_making_tautomers":             boolField(func(r *raw) *bool { return &r.SkipMakingTautomers }),
	"skip_ennumerate_chiral_mol":        boolField(func(r *raw) *bool { return &r.SkipEnumerateChiralMol }),
	"skip_ennumerate_double_bonds":      boolField(func(r *raw) *bool { return &r.SkipEnumerateDoubleBonds }),
	"cache_prerun":                      boolField(func(r *raw) *bool { return &r.CachePrerun }),
	"test":                              boolField(func(r *raw) *bool { return &r.Test }),
}

// Keys returns every recognized key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// FromMap builds a Config from a flat mapping. Keys are case insensitive.
func FromMap(values map[string]any) (Config, error) {
	r := defaults()

	var issues []Issue

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		name := strings.ToLower(key)
		f, ok := schema[name]
		if !ok {
			issues = append(issues, Issue{Key: key, Message: "unrecognized parameter"})

			continue
		}

		v, err := coerce(f.kind, values[key])
		if err != nil {
			issues = append(issues, Issue{Key: key, Message: err.Error()})

			continue
		}
		f.set(&r, v)
	}

	if len(issues) > 0 {
		return Config{}, &ValidationError{Issues: issues}
	}

	issues = r.finalize()
	if len(issues) > 0 {
		return Config{}, &ValidationError{Issues: issues}
	}

	return r.Config, nil
}

func coerce(want kind, v any) (any, error) {
	switch want {
	case kindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case kindInt:
		if i, ok := asInt(v); ok {
			return i, nil
		}
	case kindFloat:
		if f, ok := asFloat(v); ok {
			return f, nil
		}
		// integers widen to real numbers
		if i, ok := asInt(v); ok {
			return float64(i), nil
		}
	}

	return nil, fmt.Errorf("must be of type %s, got %s", want, typeName(v))
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt || n < math.MinInt {
			return 0, false
		}

		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}

		return int(n), true
	case json.Number:
		if strings.ContainsAny(n.String(), ".eE") {
			return 0, false
		}
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}

		return asInt(i)
	}

	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		if !strings.ContainsAny(n.String(), ".eE") {
			return 0, false
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return f, true
	}

	return 0, false
}

func typeName(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return string(kindString)
	case bool:
		return string(kindBool)
	case json.Number:
		if _, ok := asInt(n); ok {
			return string(kindInt)
		}

		return string(kindFloat)
	case float32, float64:
		return string(kindFloat)
	case int, int32, int64, uint64:
		return string(kindInt)
	default:
		return fmt.Sprintf("%T", v)
	}
}
