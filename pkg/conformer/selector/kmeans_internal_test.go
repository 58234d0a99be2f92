package selector

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMeansSeparatesClusters(t *testing.T) {
	t.Parallel()

	points := [][]float64{{0, 0}, {0, 1}, {10, 10}, {10, 11}}
	assign, centroids := KMeans(points, 2, rand.New(rand.NewPCG(7, 7)), 50)
	require.Len(t, centroids, 2)
	assert.Equal(t, assign[0], assign[1])
	assert.Equal(t, assign[2], assign[3])
	assert.NotEqual(t, assign[0], assign[2])
}

func TestKMeansDuplicatePoints(t *testing.T) {
	t.Parallel()

	points := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	assign, centroids := KMeans(points, 3, rand.New(rand.NewPCG(0, 0)), 10)
	require.Len(t, centroids, 3)
	assert.Equal(t, []int{0, 0, 0}, assign)
	assert.Len(t, representatives(points, assign, centroids), 1)
}

func TestKMeansEmpty(t *testing.T) {
	t.Parallel()

	assign, centroids := KMeans(nil, 3, rand.New(rand.NewPCG(0, 0)), 10)
	assert.Nil(t, assign)
	assert.Nil(t, centroids)
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Cl", "C", "[NH3+]", "c", "1", "%12", "Br"}, tokenize("ClC[NH3+]c1%12Br"))
	assert.Equal(t, []string{"C", "[NH"}, tokenize("C[NH"))
}

func TestHashedFingerprinter(t *testing.T) {
	t.Parallel()

	fp := NewHashedFingerprinter()
	a := fp.Fingerprint("CCO")
	assert.Len(t, a, defaultFingerprintSize)
	assert.Equal(t, a, fp.Fingerprint("CCO"))

	total := 0.0
	for _, v := range a {
		total += v
	}
	// 3 + 2 + 1 paths
	assert.InDelta(t, 6.0, total, 1e-9)
	assert.NotEqual(t, a, fp.Fingerprint("CCN"))
}

func TestFill(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{3, 0, 1}, fill([]int{3}, 5, 3))
	assert.Equal(t, []int{3, 1}, fill([]int{3, 1}, 5, 2))
	assert.Equal(t, []int{0, 1}, fill(nil, 2, 4))
}
