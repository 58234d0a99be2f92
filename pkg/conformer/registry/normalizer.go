package registry

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnbalancedBrackets = errors.New("unbalanced brackets")
	ErrUnclosedRing       = errors.New("unclosed ring bond")
	ErrAmbiguousBond      = errors.New("bond with no assigned order")
)

// Normalizer is implemented by the chemistry engine. Normalize returns the
// canonical form of a structure, or an error wrapping ErrAmbiguousBond when
// the structure has a bond without an assigned order.
type Normalizer interface {
	Normalize(structure string) (string, error)
}

// LexicalNormalizer checks the SMILES syntax without any chemistry: brackets
// and parentheses must balance, ring bonds must close and the "any bond"
// symbol is refused. The canonical form is the trimmed input.
type LexicalNormalizer struct{}

func (LexicalNormalizer) Normalize(structure string) (string, error) {
	structure = strings.TrimSpace(structure)
	if strings.ContainsAny(structure, " \t\n") {
		return "", errors.New("whitespace inside structure")
	}

	depth, inAtom := 0, false
	rings := map[string]bool{}

	for i := 0; i < len(structure); i++ {
		ch := structure[i]
		switch {
		case inAtom:
			if ch == ']' {
				inAtom = false
			}
		case ch == '[':
			inAtom = true
		case ch == ']':
			return "", errors.Wrapf(ErrUnbalancedBrackets, "at %d", i)
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth < 0 {
				return "", errors.Wrapf(ErrUnbalancedBrackets, "at %d", i)
			}
		case ch == '~':
			return "", errors.Wrapf(ErrAmbiguousBond, "at %d", i)
		case ch >= '0' && ch <= '9':
			label := string(ch)
			rings[label] = !rings[label]
		case ch == '%':
			if i+2 >= len(structure) {
				return "", errors.Wrapf(ErrUnclosedRing, "truncated label at %d", i)
			}
			label := structure[i : i+3]
			rings[label] = !rings[label]
			i += 2
		}
	}

	if inAtom || depth != 0 {
		return "", ErrUnbalancedBrackets
	}

	for label, open := range rings {
		if open {
			return "", errors.Wrapf(ErrUnclosedRing, "label %s", label)
		}
	}

	return structure, nil
}
