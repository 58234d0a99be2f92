// Package stagestore is the in-memory graph store behind the stage graph of
// a pipeline. Vertices keep their insertion order and their properties can be
// annotated after insertion, which the default store of the graph library does
// not allow.
package stagestore

import (
	"maps"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// Store is a graph.Store that can annotate vertices.
type Store[K comparable, T any] interface {
	graph.Store[K, T]
	// Annotate applies options to the properties of the vertex k.
	Annotate(k K, options ...func(*graph.VertexProperties)) error
	// Position returns the insertion rank of the vertex k.
	Position(k K) (int, error)
}

// MemoryStore keeps vertices and edges in maps guarded by a lock.
type MemoryStore[K comparable, T any] struct {
	lock       sync.RWMutex
	order      []K
	position   map[K]int
	vertices   map[K]T
	properties map[K]*graph.VertexProperties

	outEdges map[K]map[K]graph.Edge[K] // source -> target
	inEdges  map[K]map[K]graph.Edge[K] // target -> source
}

// New returns an empty store.
func New[K comparable, T any]() *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		position:   make(map[K]int),
		vertices:   make(map[K]T),
		properties: make(map[K]*graph.VertexProperties),
		outEdges:   make(map[K]map[K]graph.Edge[K]),
		inEdges:    make(map[K]map[K]graph.Edge[K]),
	}
}

func (s *MemoryStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}

	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}

	s.vertices[k] = t
	s.properties[k] = &p
	s.position[k] = len(s.order)
	s.order = append(s.order, k)

	return nil
}

// ListVertices returns the vertices in insertion order.
func (s *MemoryStore[K, T]) ListVertices() ([]K, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return append([]K(nil), s.order...), nil
}

func (s *MemoryStore[K, T]) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

// Vertex returns the vertex with a copy of its properties.
func (s *MemoryStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		return v, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	p := *s.properties[k]
	p.Attributes = maps.Clone(p.Attributes)

	return v, p, nil
}

func (s *MemoryStore[K, T]) Position(k K) (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	pos, ok := s.position[k]
	if !ok {
		return 0, graph.ErrVertexNotFound
	}

	return pos, nil
}

func (s *MemoryStore[K, T]) Annotate(k K, options ...func(*graph.VertexProperties)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, ok := s.properties[k]
	if !ok {
		return errors.Wrapf(graph.ErrVertexNotFound, "%v", k)
	}

	for _, opt := range options {
		opt(p)
	}

	return nil
}

func (s *MemoryStore[K, T]) RemoveVertex(k K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}

	if len(s.inEdges[k]) > 0 || len(s.outEdges[k]) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.inEdges, k)
	delete(s.outEdges, k)
	delete(s.vertices, k)
	delete(s.properties, k)

	pos := s.position[k]
	delete(s.position, k)
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	for i := pos; i < len(s.order); i++ {
		s.position[s.order[i]] = i
	}

	return nil
}

func (s *MemoryStore[K, T]) AddEdge(source, target K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[source]; !ok {
		return errors.Wrapf(graph.ErrVertexNotFound, "%v", source)
	}
	if _, ok := s.vertices[target]; !ok {
		return errors.Wrapf(graph.ErrVertexNotFound, "%v", target)
	}
	if _, ok := s.outEdges[source][target]; ok {
		return graph.ErrEdgeAlreadyExists
	}

	if _, ok := s.outEdges[source]; !ok {
		s.outEdges[source] = make(map[K]graph.Edge[K])
	}
	s.outEdges[source][target] = edge

	if _, ok := s.inEdges[target]; !ok {
		s.inEdges[target] = make(map[K]graph.Edge[K])
	}
	s.inEdges[target][source] = edge

	return nil
}

func (s *MemoryStore[K, T]) UpdateEdge(source, target K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.outEdges[source][target]; !ok {
		return graph.ErrEdgeNotFound
	}

	s.outEdges[source][target] = edge
	s.inEdges[target][source] = edge

	return nil
}

func (s *MemoryStore[K, T]) RemoveEdge(source, target K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.inEdges[target], source)
	delete(s.outEdges[source], target)

	return nil
}

func (s *MemoryStore[K, T]) Edge(source, target K) (graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	edge, ok := s.outEdges[source][target]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

// ListEdges returns the edges ordered by source then target insertion.
func (s *MemoryStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var res []graph.Edge[K]

	for _, source := range s.order {
		for _, target := range s.order {
			if edge, ok := s.outEdges[source][target]; ok {
				res = append(res, edge)
			}
		}
	}

	return res, nil
}

// CreatesCycle walks the incoming edges from source looking for target. The
// graph library uses it instead of rebuilding the predecessor map.
func (s *MemoryStore[K, T]) CreatesCycle(source, target K) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if _, ok := s.vertices[source]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "%v", source)
	}
	if _, ok := s.vertices[target]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "%v", target)
	}

	if source == target {
		return true, nil
	}

	stack := []K{source}
	visited := make(map[K]struct{})

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[current]; ok {
			continue
		}
		// target is already an ancestor of source
		if current == target {
			return true, nil
		}
		visited[current] = struct{}{}

		for parent := range s.inEdges[current] {
			stack = append(stack, parent)
		}
	}

	return false, nil
}

var _ Store[string, string] = (*MemoryStore[string, string])(nil)
