// Package registry holds one record per input molecule for a whole run.
package registry

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

// UniqueIDProp is the property set on every variant by AssignFinalIdentifiers.
const UniqueIDProp = "UniqueID"

// Rename records a display name that was changed to keep names unique.
type Rename struct {
	ContainerID int
	Requested   string
	Assigned    string
	Position    int
}

// Registry stores the containers of a run. It is not safe for concurrent use:
// the pipeline only touches it between dispatch calls.
type Registry struct {
	normalizer Normalizer
	logger     *slog.Logger

	containers []*model.Container
	byID       map[int]*model.Container
	names      map[string]struct{}
	copies     map[string]int
	renames    []Rename

	nextID    int
	position  int
	untitled  int
	finalized bool
}

// Option configures a Registry.
type Option func(r *Registry)

// WithNormalizer sets the normalizer. The default is LexicalNormalizer.
func WithNormalizer(n Normalizer) Option {
	return func(r *Registry) {
		r.normalizer = n
	}
}

// WithLogger sets the logger used for rejection and rename warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		normalizer: LexicalNormalizer{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		byID:       make(map[int]*model.Container),
		names:      make(map[string]struct{}),
		copies:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register turns a record into a container with the next unused identity.
// Malformed records return a *RejectionError and use no identity.
func (r *Registry) Register(rec model.InputRecord) (*model.Container, error) {
	position := r.position
	r.position++

	canonical, err := r.normalize(rec)
	if err != nil {
		r.logger.Warn("throwing out input record", "structure", rec.Structure, "name", rec.Name, "error", err)

		return nil, err
	}

	name := r.uniqueName(rec.Name, position)
	ctn := model.NewContainer(r.nextID, rec.Structure, canonical, name, rec.Props)
	r.nextID++

	if name != strings.TrimSpace(rec.Name) {
		r.renames = append(r.renames, Rename{
			ContainerID: ctn.ID(),
			Requested:   rec.Name,
			Assigned:    name,
			Position:    position,
		})
		r.logger.Warn("input record renamed", "requested", rec.Name, "assigned", name, "position", position)
	}

	r.containers = append(r.containers, ctn)
	r.byID[ctn.ID()] = ctn

	return ctn, nil
}

func (r *Registry) normalize(rec model.InputRecord) (string, error) {
	if strings.TrimSpace(rec.Structure) == "" {
		return "", &RejectionError{Structure: rec.Structure, Name: rec.Name, Reason: ReasonEmpty}
	}

	canonical, err := r.normalizer.Normalize(rec.Structure)
	if err != nil {
		reason := ReasonUnparsable
		if errors.Is(err, ErrAmbiguousBond) {
			reason = ReasonUnassignedBond
		}

		return "", &RejectionError{Err: err, Structure: rec.Structure, Name: rec.Name, Reason: reason}
	}

	if canonical == "" {
		return "", &RejectionError{Structure: rec.Structure, Name: rec.Name, Reason: ReasonUnparsable}
	}

	return canonical, nil
}

func (r *Registry) uniqueName(requested string, position int) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		name = fmt.Sprintf("untitled_lig_%d_line_%d", r.untitled, position)
		r.untitled++
	}

	base := name
	for {
		if _, taken := r.names[name]; !taken {
			break
		}

		next, ok := r.copies[base]
		if !ok {
			next = 1
		}
		next++
		r.copies[base] = next
		name = base + "_copy_" + strconv.Itoa(next)
	}

	r.names[name] = struct{}{}

	return name
}

// Container returns the container with the given identity.
func (r *Registry) Container(id int) (*model.Container, bool) {
	ctn, ok := r.byID[id]

	return ctn, ok
}

// Containers returns every container in registration order.
func (r *Registry) Containers() []*model.Container {
	return slices.Clone(r.containers)
}

// Renames returns the renames done so far, in registration order.
func (r *Registry) Renames() []Rename {
	return slices.Clone(r.renames)
}

// Len returns the number of containers.
func (r *Registry) Len() int {
	return len(r.containers)
}

// CommitStageResult replaces the live variants of a container. Every variant
// must belong to the container and carry its lineage.
func (r *Registry) CommitStageResult(containerID int, variants []model.Variant) error {
	if r.finalized {
		return ErrFinalized
	}

	ctn, ok := r.byID[containerID]
	if !ok {
		return errors.Wrapf(ErrUnknownContainer, "id %d", containerID)
	}

	for i, v := range variants {
		if v.ContainerID != containerID {
			return errors.Wrapf(ErrWrongContainer, "variant %d of container %d claims %d", i, containerID, v.ContainerID)
		}
		if len(v.Lineage) == 0 {
			return errors.Wrapf(ErrMissingLineage, "variant %d of container %d", i, containerID)
		}
	}

	ctn.Variants = slices.Clone(variants)

	return nil
}

// AssignFinalIdentifiers numbers every surviving variant, starting at 1, in
// container then variant order. It can only run once and returns the number
// of variants.
func (r *Registry) AssignFinalIdentifiers() (int, error) {
	if r.finalized {
		return 0, ErrFinalized
	}
	r.finalized = true

	counter := 0
	for _, ctn := range r.containers {
		for i := range ctn.Variants {
			counter++
			v := &ctn.Variants[i]
			v.UniqueID = counter
			if v.Props == nil {
				v.Props = map[string]string{}
			} else {
				v.Props = maps.Clone(v.Props)
			}
			v.Props[UniqueIDProp] = strconv.Itoa(counter)
		}
	}

	return counter, nil
}
