// Package selector keeps the combinatorial explosion of variants in check.
//
// Select reduces the variants generated for one container to a small, diverse subset: the variants are
// fingerprinted, clustered with k-means and the variant closest to each centroid is kept. Given the same
// input order and the same seed, the output is always the same.
package selector
