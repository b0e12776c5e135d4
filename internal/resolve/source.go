// Package resolve determines a subject's genotype for a requested variant
// from either a structured variant call set or a flat genotype table.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/genomekit/genomekit/internal/genotype"
)

// Coordinate identifies a genomic site. Chrom is stored without the "chr"
// prefix so that both naming conventions resolve to the same site.
type Coordinate struct {
	Chrom string
	Pos   int64
}

// ParseCoordinate parses "chr:pos" with either bare or "chr"-prefixed
// chromosome naming.
func ParseCoordinate(s string) (Coordinate, error) {
	chrom, posStr, ok := strings.Cut(s, ":")
	if !ok || chrom == "" {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q", s)
	}
	pos, err := strconv.ParseInt(posStr, 10, 64)
	if err != nil || pos < 1 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: bad position", s)
	}
	return Coordinate{Chrom: strings.TrimPrefix(chrom, "chr"), Pos: pos}, nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%d", c.Chrom, c.Pos)
}

// Source resolves a requested variant to the subject's genotype.
//
// Resolution never fails: a variant that cannot be found or decoded yields
// the unknown sentinel so that classification renders UNKNOWN instead of
// aborting the batch. The raw call code ("0/1", "0/0", ...) is returned
// alongside the canonical genotype for diagnostics.
type Source interface {
	Resolve(coord Coordinate, id string) (call string, gt genotype.Genotype)

	// Concurrent reports whether independent lookups may run in parallel.
	Concurrent() bool
}
