package resolve

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/genomekit/genomekit/internal/genotype"
	"github.com/genomekit/genomekit/internal/vcf"
)

// refPairCall is the call code reported for missing or unresolvable calls.
const refPairCall = "0/0"

// VCFSource resolves genotypes from a structured variant call set. The
// whole call set is indexed once by identifier and by coordinate; lookups
// afterwards are read-only and safe to run concurrently.
type VCFSource struct {
	byID    map[string]*vcf.Record
	byCoord map[Coordinate]*vcf.Record
	logger  *zap.Logger
}

// NewVCFSource loads and indexes the call set at path. The first record
// wins when an identifier or coordinate repeats.
func NewVCFSource(path string) (*VCFSource, error) {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	s := &VCFSource{
		byID:    make(map[string]*vcf.Record),
		byCoord: make(map[Coordinate]*vcf.Record),
		logger:  zap.NewNop(),
	}

	for {
		rec, err := parser.Next()
		if err != nil {
			return nil, fmt.Errorf("load call set: %w", err)
		}
		if rec == nil {
			break
		}
		if rec.HasID() {
			if _, seen := s.byID[rec.ID]; !seen {
				s.byID[rec.ID] = rec
			}
		}
		coord := Coordinate{Chrom: rec.NormalizeChrom(), Pos: rec.Pos}
		if _, seen := s.byCoord[coord]; !seen {
			s.byCoord[coord] = rec
		}
	}
	return s, nil
}

// SetLogger sets the logger for lookup diagnostics.
func (s *VCFSource) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Concurrent reports that lookups are independent and parallel-safe.
func (s *VCFSource) Concurrent() bool {
	return true
}

// Count returns the number of indexed identifiers.
func (s *VCFSource) Count() int {
	return len(s.byID)
}

// Resolve looks up by identifier first, then by coordinate.
func (s *VCFSource) Resolve(coord Coordinate, id string) (string, genotype.Genotype) {
	rec, ok := s.byID[id]
	if !ok {
		rec, ok = s.byCoord[coord]
	}
	if !ok {
		s.logger.Debug("variant not found in call set",
			zap.String("rsid", id),
			zap.String("coord", coord.String()))
		return refPairCall, genotype.Unknown
	}
	return genotypeFromRecord(rec)
}

// genotypeFromRecord maps a zygosity call to a canonical genotype.
//
// 0/0 resolves to ref/ref, 1/1 to alt/alt, 0/1 (either order) to ref/alt.
// Missing or empty calls normalize to the "0/0" call code, paired with
// ref/ref when the reference allele is known and the unknown sentinel
// otherwise. Calls at sites with more than one alternate allele, or with
// allele indices beyond the biallelic case, resolve to the unknown
// sentinel rather than guessing an allele-index mapping.
func genotypeFromRecord(rec *vcf.Record) (string, genotype.Genotype) {
	ref := strings.ToUpper(rec.Ref)
	alts := rec.AltAlleles()

	refPair := func() genotype.Genotype {
		if ref == "" || ref == "." {
			return genotype.Unknown
		}
		return genotype.New(ref, ref)
	}

	call := rec.GenotypeCall()
	if call == "" || call == "./" || call == "./." {
		return refPairCall, refPair()
	}

	switch call {
	case "0/0":
		return call, refPair()
	case "1/1":
		if len(alts) != 1 {
			return call, genotype.Unknown
		}
		alt := strings.ToUpper(alts[0])
		return call, genotype.New(alt, alt)
	case "0/1", "1/0":
		if ref == "" || ref == "." || len(alts) != 1 {
			return call, genotype.Unknown
		}
		return call, genotype.New(ref, strings.ToUpper(alts[0]))
	}

	// Anything else is a complex or multi-allelic call.
	return call, genotype.Unknown
}
