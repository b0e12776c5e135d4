// Package microarray derives consumer chip format files from the
// combined genotype table, filtering rows per format and packaging the
// result.
package microarray

import (
	"hash/fnv"
	"strings"
)

// Formats lists every supported consumer format, in generation order.
// CombinedKit is the canonical table itself and is handled upstream.
var Formats = []string{
	"CombinedKit",
	"23andMe_V3", "23andMe_V4", "23andMe_V5", "23andMe_SNPs_API", "23andMe_V35",
	"Ancestry_V1", "Ancestry_V2",
	"FTDNA_V2", "FTDNA_V3",
	"LDNA_V1", "LDNA_V2",
	"MyHeritage_V1", "MyHeritage_V2",
	"MTHFRGen", "Genera", "meuDNA",
	"1240K", "HOv1", "1240+HO",
}

// IsValidFormat reports whether name is a supported format.
func IsValidFormat(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

// TargetSuffix returns the uncompressed file extension a format uses.
func TargetSuffix(format string) string {
	switch {
	case strings.Contains(format, "FTDNA"), strings.Contains(format, "MyHeritage"):
		return "csv"
	case strings.Contains(format, "LDNA"):
		return "csv.gz"
	}
	return "txt"
}

// fallbackAdmit decides row inclusion when a format ships no explicit
// list: rs-named identifiers are admitted by a stable hash at a
// fraction fixed per format family. This is a coarse approximation of
// real chip content, kept deterministic so repeated runs agree; it is
// not a precise membership test.
func fallbackAdmit(format, snpID string) bool {
	if !strings.Contains(snpID, "rs") {
		return false
	}
	var admit uint64
	switch {
	case strings.HasPrefix(format, "23andMe"):
		admit = 7
	case strings.HasPrefix(format, "Ancestry"):
		admit = 6
	case strings.HasPrefix(format, "FTDNA"):
		admit = 5
	default:
		admit = 4
	}
	h := fnv.New64a()
	h.Write([]byte(snpID))
	return h.Sum64()%10 < admit
}
