package selector

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprinter turns a structure into a fixed-length descriptor vector.
type Fingerprinter interface {
	Fingerprint(structure string) []float64
}

const (
	defaultFingerprintSize = 128
	defaultMaxPath         = 3
)

// HashedFingerprinter counts the paths of up to MaxPath consecutive tokens of
// a SMILES string, hashed into Size bins. Bracket atoms, two-letter halogens
// and ring-bond labels count as single tokens.
type HashedFingerprinter struct {
	Size    int
	MaxPath int
}

// NewHashedFingerprinter returns a fingerprinter with the default size.
func NewHashedFingerprinter() *HashedFingerprinter {
	return &HashedFingerprinter{Size: defaultFingerprintSize, MaxPath: defaultMaxPath}
}

func (hf *HashedFingerprinter) Fingerprint(structure string) []float64 {
	size := hf.Size
	if size <= 0 {
		size = defaultFingerprintSize
	}

	maxPath := hf.MaxPath
	if maxPath <= 0 {
		maxPath = defaultMaxPath
	}

	fp := make([]float64, size)
	tokens := tokenize(structure)

	for length := 1; length <= maxPath; length++ {
		for start := 0; start+length <= len(tokens); start++ {
			path := strings.Join(tokens[start:start+length], "\x00")
			fp[xxhash.Sum64String(path)%uint64(size)]++
		}
	}

	return fp
}

var twoLetterAtoms = map[string]struct{}{"Cl": {}, "Br": {}}

func tokenize(structure string) []string {
	var tokens []string

	for i := 0; i < len(structure); {
		switch {
		case structure[i] == '[':
			end := strings.IndexByte(structure[i:], ']')
			if end < 0 {
				tokens = append(tokens, structure[i:])

				return tokens
			}
			tokens = append(tokens, structure[i:i+end+1])
			i += end + 1
		case structure[i] == '%' && i+2 < len(structure):
			tokens = append(tokens, structure[i:i+3])
			i += 3
		case i+1 < len(structure):
			if _, ok := twoLetterAtoms[structure[i:i+2]]; ok {
				tokens = append(tokens, structure[i:i+2])
				i += 2

				continue
			}

			tokens = append(tokens, structure[i:i+1])
			i++
		default:
			tokens = append(tokens, structure[i:i+1])
			i++
		}
	}

	return tokens
}
