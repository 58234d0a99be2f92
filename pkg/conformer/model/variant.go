package model

import "maps"

// SourceNote is the lineage suffix of a container's input structure.
const SourceNote = "(source)"

// Variant is one candidate molecule derived from a container at some stage.
type Variant struct {
	// ContainerID is the identity of the owning container.
	ContainerID int
	// Structure is the molecular structure, usually a SMILES string.
	Structure string
	// Lineage records every transformation applied, oldest first.
	Lineage []string
	// Props is the property bag inherited from the container.
	Props map[string]string
	// UniqueID is the global output identifier. Zero until the registry
	// assigns final identifiers.
	UniqueID int
}

// Derive returns a new variant of the same container with the given structure
// and one more lineage entry. The receiver is left untouched.
func (v Variant) Derive(structure, note string) Variant {
	lineage := make([]string, len(v.Lineage), len(v.Lineage)+1)
	copy(lineage, v.Lineage)
	if note != "" {
		lineage = append(lineage, note)
	}

	return Variant{
		ContainerID: v.ContainerID,
		Structure:   structure,
		Lineage:     lineage,
		Props:       maps.Clone(v.Props),
	}
}

// Annotate returns a copy of the variant with note appended to its lineage
// and the structure unchanged.
func (v Variant) Annotate(note string) Variant {
	return v.Derive(v.Structure, note)
}

// LastStep returns the most recent lineage entry, or an empty string.
func (v Variant) LastStep() string {
	if len(v.Lineage) == 0 {
		return ""
	}

	return v.Lineage[len(v.Lineage)-1]
}
