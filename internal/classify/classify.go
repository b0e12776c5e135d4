// Package classify matches resolved genotypes against known protective and
// risk alleles.
package classify

import (
	"github.com/genomekit/genomekit/internal/genotype"
)

// Status is the clinical interpretation of a classified genotype.
type Status int

const (
	// StatusGood means the genotype matches the protective alleles.
	StatusGood Status = iota
	// StatusRisk means the genotype matches the risk alleles.
	StatusRisk
	// StatusCarrier means the genotype is heterozygous but matches neither
	// reference pair.
	StatusCarrier
	// StatusUnknown means the genotype could not be resolved.
	StatusUnknown
	// StatusVariant means the genotype is homozygous but matches neither
	// reference pair.
	StatusVariant
	// StatusError marks a per-entry processing failure.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusGood:
		return "GOOD"
	case StatusRisk:
		return "RISK"
	case StatusCarrier:
		return "CARRIER"
	case StatusUnknown:
		return "UNKNOWN"
	case StatusVariant:
		return "VARIANT"
	case StatusError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Classify determines the display genotype and status for gt against a
// protective/risk reference pair.
//
// Consumer genotyping data is strand-agnostic, so a true match may appear
// on either strand and in either allele order. Four candidate renderings
// are checked in a fixed order (as given, order-reversed, complemented,
// complemented and reversed) and the first one equal to either reference
// genotype becomes the display genotype; if none match, the genotype is
// displayed as given. Status then falls out of the display genotype, with
// heterozygosity downgrading an unmatched call to CARRIER rather than
// VARIANT.
func Classify(gt, protective, risk genotype.Genotype) (genotype.Genotype, Status) {
	if gt.IsUnknown() {
		return gt, StatusUnknown
	}

	forward := gt
	candidates := []genotype.Genotype{
		forward,
		forward.Reversed(),
		forward.Complement(),
		forward.Reversed().Complement(),
	}

	display := forward
	for _, c := range candidates {
		if c == protective || c == risk {
			display = c
			break
		}
	}

	switch {
	case display == protective:
		return display, StatusGood
	case display == risk:
		return display, StatusRisk
	case !forward.Homozygous():
		return display, StatusCarrier
	}
	return display, StatusVariant
}
