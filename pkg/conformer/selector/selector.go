package selector

import (
	"math/rand/v2"
	"slices"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

const defaultMaxIterations = 100

// Selector picks a bounded, diverse subset of variants.
type Selector struct {
	fingerprinter Fingerprinter
	seed          uint64
	maxIterations int
}

// Option configures a Selector.
type Option func(s *Selector)

// WithFingerprinter replaces the default hashed fingerprinter.
func WithFingerprinter(fp Fingerprinter) Option {
	return func(s *Selector) {
		s.fingerprinter = fp
	}
}

// WithSeed sets the seed of the clustering.
func WithSeed(seed uint64) Option {
	return func(s *Selector) {
		s.seed = seed
	}
}

// WithMaxIterations caps the number of k-means rounds.
func WithMaxIterations(maxIterations int) Option {
	return func(s *Selector) {
		s.maxIterations = maxIterations
	}
}

// New creates a Selector.
func New(opts ...Option) *Selector {
	s := &Selector{
		fingerprinter: NewHashedFingerprinter(),
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Select returns at most maxKeep variants out of the first
// maxKeep*thoroughness distinct ones. Variants with the same structure count
// once; the first occurrence is kept. The output follows input order.
func (s *Selector) Select(variants []model.Variant, maxKeep, thoroughness int) []model.Variant {
	if len(variants) == 0 {
		return []model.Variant{}
	}

	maxKeep = max(maxKeep, 1)
	thoroughness = max(thoroughness, 1)

	candidates := distinct(variants)
	if len(candidates) > maxKeep*thoroughness {
		candidates = candidates[:maxKeep*thoroughness]
	}

	if len(candidates) <= maxKeep {
		return candidates
	}

	points := make([][]float64, len(candidates))
	for i, v := range candidates {
		points[i] = s.fingerprinter.Fingerprint(v.Structure)
	}

	rng := rand.New(rand.NewPCG(s.seed, s.seed))
	assign, centroids := KMeans(points, maxKeep, rng, s.maxIterations)

	picked := representatives(points, assign, centroids)
	picked = fill(picked, len(candidates), maxKeep)
	slices.Sort(picked)

	out := make([]model.Variant, len(picked))
	for i, idx := range picked {
		out[i] = candidates[idx]
	}

	return out
}

func distinct(variants []model.Variant) []model.Variant {
	seen := make(map[string]struct{}, len(variants))
	out := make([]model.Variant, 0, len(variants))

	for _, v := range variants {
		if _, ok := seen[v.Structure]; ok {
			continue
		}
		seen[v.Structure] = struct{}{}
		out = append(out, v)
	}

	return out
}

// representatives returns, for every populated cluster, the index of the
// member closest to the centroid. The first one in input order wins ties.
func representatives(points [][]float64, assign []int, centroids [][]float64) []int {
	best := make([]int, len(centroids))
	bestDist := make([]float64, len(centroids))
	for c := range best {
		best[c] = -1
	}

	for i, c := range assign {
		d := squaredDistance(points[i], centroids[c])
		if best[c] < 0 || d < bestDist[c] {
			best[c], bestDist[c] = i, d
		}
	}

	picked := make([]int, 0, len(centroids))
	for _, idx := range best {
		if idx >= 0 {
			picked = append(picked, idx)
		}
	}

	return picked
}

// fill tops picked up to maxKeep with unpicked indexes, in input order.
func fill(picked []int, total, maxKeep int) []int {
	if len(picked) >= maxKeep {
		return picked
	}

	taken := make(map[int]struct{}, len(picked))
	for _, idx := range picked {
		taken[idx] = struct{}{}
	}

	for idx := 0; idx < total && len(picked) < maxKeep; idx++ {
		if _, ok := taken[idx]; ok {
			continue
		}
		picked = append(picked, idx)
	}

	return picked
}
