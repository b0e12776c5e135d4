// Package pipeline turns an alignment file into the canonical combined
// genotype table by driving external variant-calling tools through a
// staged, cache-aware state machine.
package pipeline

import (
	"path/filepath"
	"runtime"
	"time"
)

// Size thresholds below which a produced artifact is considered broken.
// The packaged combined kit is pretty stable at the size of its template.
const (
	DefaultMinKitSize          = 500_000
	DefaultMinMicroarrayZip    = 2_500_000
	DefaultProcessTimeout      = 2 * time.Hour
	defaultReferenceGenome     = "hs38d1.fna.gz"
	defaultDBSNP               = "dbsnp_156_hg38.vcf.gz"
	defaultPloidyFile          = "ploidy.txt"
	defaultCombinedKitTemplate = "23andMe_V3_header.txt"
)

// Config carries every knob the pipeline and format fan-out need: external
// tool paths, directory layout, thresholds and the process timeout. It is
// passed explicitly at construction; there is no ambient tool state.
type Config struct {
	// External tool commands, resolved via PATH unless absolute.
	BCFtools string
	Tabix    string
	GATK     string
	Shell    string

	ReferenceDir string
	OutputDir    string
	TempDir      string

	// UseGATK selects the HaplotypeCaller+GenotypeGVCFs backend instead of
	// bcftools mpileup+call. Chosen once per run.
	UseGATK bool

	Threads int

	// ProcessTimeout bounds each external process invocation. Zero means
	// no timeout.
	ProcessTimeout time.Duration

	MinKitSize       int64
	MinMicroarrayZip int64
}

// DefaultConfig returns a config with standard tool names and thresholds.
// OutputDir and ReferenceDir must still be set by the caller; TempDir
// defaults to OutputDir/temp when left empty.
func DefaultConfig() Config {
	return Config{
		BCFtools:         "bcftools",
		Tabix:            "tabix",
		GATK:             "gatk",
		Shell:            "sh",
		ReferenceDir:     "./data/reference",
		Threads:          runtime.NumCPU(),
		ProcessTimeout:   DefaultProcessTimeout,
		MinKitSize:       DefaultMinKitSize,
		MinMicroarrayZip: DefaultMinMicroarrayZip,
	}
}

// ReferenceGenome returns the reference genome FASTA path.
func (c Config) ReferenceGenome() string {
	return filepath.Join(c.ReferenceDir, defaultReferenceGenome)
}

// DBSNP returns the reference variant database path.
func (c Config) DBSNP() string {
	return filepath.Join(c.ReferenceDir, defaultDBSNP)
}

// PloidyFile returns the ploidy specification path for the bcftools
// backend.
func (c Config) PloidyFile() string {
	return filepath.Join(c.ReferenceDir, defaultPloidyFile)
}

// KitTemplateHeader returns the combined kit header template path.
func (c Config) KitTemplateHeader() string {
	return filepath.Join(c.ReferenceDir, defaultCombinedKitTemplate)
}

// SNPListFile returns the explicit inclusion list path for a format.
func (c Config) SNPListFile(format string) string {
	return filepath.Join(c.ReferenceDir, format+"_snps.txt")
}

// EffectiveTempDir returns TempDir, defaulting to OutputDir/temp.
func (c Config) EffectiveTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return filepath.Join(c.OutputDir, "temp")
}
