// Package genotype provides the allele and genotype value types shared by
// the variant-calling pipeline and the classification engine.
package genotype

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGenotype is returned for tokens outside the allele alphabet.
var ErrInvalidGenotype = errors.New("invalid genotype token")

// UnknownAllele is the sentinel used when an allele cannot be resolved.
const UnknownAllele = "Unknown"

// Genotype is a pair of alleles rendered as "X/Y".
type Genotype struct {
	A1, A2 string
}

// Unknown is the sentinel genotype for unresolved variants. Downstream
// classification renders it as UNKNOWN instead of failing the batch.
var Unknown = Genotype{UnknownAllele, UnknownAllele}

// New returns the genotype a1/a2.
func New(a1, a2 string) Genotype {
	return Genotype{A1: a1, A2: a2}
}

func (g Genotype) String() string {
	return g.A1 + "/" + g.A2
}

// IsUnknown reports whether g is the unresolved sentinel.
func (g Genotype) IsUnknown() bool {
	return g == Unknown
}

// Homozygous reports whether both alleles are equal.
func (g Genotype) Homozygous() bool {
	return g.A1 == g.A2
}

// Reversed returns the genotype with allele order swapped.
func (g Genotype) Reversed() Genotype {
	return Genotype{A1: g.A2, A2: g.A1}
}

// Complement returns the base-complemented genotype. Allele order is kept;
// alleles outside the complement table (including the unknown sentinel)
// pass through unchanged.
func (g Genotype) Complement() Genotype {
	return Genotype{A1: ComplementString(g.A1), A2: ComplementString(g.A2)}
}

// Complement returns the DNA complement of a single base. It is total:
// A<->T, C<->G, N and gap map to themselves, case is preserved, and any
// byte outside the table is returned unchanged.
func Complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'c':
		return 'g'
	case 'g':
		return 'c'
	}
	return b
}

// ComplementString complements each base of s.
func ComplementString(s string) string {
	out := []byte(s)
	for i := range out {
		out[i] = Complement(out[i])
	}
	return string(out)
}

// validAllele reports whether b is in the allowed allele alphabet
// (case-insensitive bases, N, or gap).
func validAllele(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n', '-':
		return true
	}
	return false
}

// ParseRaw parses a raw genotype token into a canonical genotype.
//
// Accepted forms: a single allele character (expanded to a homozygous
// pair), two concatenated allele characters, or two allele characters
// separated by '/' or '|'. Output alleles are uppercased.
func ParseRaw(token string) (Genotype, error) {
	switch len(token) {
	case 1:
		if !validAllele(token[0]) {
			return Genotype{}, fmt.Errorf("%w: %q", ErrInvalidGenotype, token)
		}
		a := strings.ToUpper(token)
		return Genotype{A1: a, A2: a}, nil
	case 2:
		if !validAllele(token[0]) || !validAllele(token[1]) {
			return Genotype{}, fmt.Errorf("%w: %q", ErrInvalidGenotype, token)
		}
		u := strings.ToUpper(token)
		return Genotype{A1: u[:1], A2: u[1:]}, nil
	case 3:
		if (token[1] == '/' || token[1] == '|') && validAllele(token[0]) && validAllele(token[2]) {
			u := strings.ToUpper(token)
			return Genotype{A1: u[:1], A2: u[2:]}, nil
		}
	}
	return Genotype{}, fmt.Errorf("%w: %q", ErrInvalidGenotype, token)
}
