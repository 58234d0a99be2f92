package model

import "maps"

// InputRecord is one entry handed over by the ingestion collaborator.
type InputRecord struct {
	Structure string
	Name      string
	Props     map[string]string
}

// Container tracks every variant derived from one input molecule.
type Container struct {
	id int
	// Original is the structure exactly as it was given.
	Original string
	// Canonical is the normalized structure used as the first stage input.
	Canonical string
	// Name is the display name, unique within a run.
	Name string
	// Props is the property bag copied from the source file.
	Props map[string]string
	// Variants holds the live variants, in the order they were committed.
	Variants []Variant
}

// NewContainer creates a container. The identity cannot be changed afterwards.
func NewContainer(id int, original, canonical, name string, props map[string]string) *Container {
	if props == nil {
		props = map[string]string{}
	}

	return &Container{
		id:        id,
		Original:  original,
		Canonical: canonical,
		Name:      name,
		Props:     maps.Clone(props),
	}
}

// ID returns the container identity.
func (c *Container) ID() int {
	return c.id
}

// Source returns the variant every lineage starts from: the canonical
// structure with a single "(source)" entry holding the original input.
func (c *Container) Source() Variant {
	return Variant{
		ContainerID: c.id,
		Structure:   c.Canonical,
		Lineage:     []string{c.Original + " " + SourceNote},
		Props:       maps.Clone(c.Props),
	}
}

// Failed reports whether the container has no live variant.
func (c *Container) Failed() bool {
	return len(c.Variants) == 0
}
