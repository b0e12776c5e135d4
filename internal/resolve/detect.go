package resolve

import (
	"bufio"
	"compress/gzip"
	"os"
	"strings"

	"go.uber.org/zap"
)

// IsVCF reports whether the file at path looks like a VCF call set rather
// than a flat genotype table. Extension is checked first, then the first
// line of content (gzip-aware). Unreadable files default to VCF.
func IsVCF(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".vcf") || strings.HasSuffix(lower, ".vcf.gz") {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	var reader *bufio.Reader
	if strings.HasSuffix(lower, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return true
		}
		defer gz.Close()
		reader = bufio.NewReader(gz)
	} else {
		reader = bufio.NewReader(f)
	}

	first, err := reader.ReadString('\n')
	if err != nil && first == "" {
		return true
	}
	first = strings.TrimSpace(first)
	return strings.HasPrefix(first, "##") || strings.Contains(first, "#CHROM")
}

// NewSource opens the appropriate source implementation for path based on
// its detected shape.
func NewSource(path string, logger *zap.Logger) (Source, error) {
	if IsVCF(path) {
		logger.Info("input detected as VCF call set", zap.String("path", path))
		src, err := NewVCFSource(path)
		if err != nil {
			return nil, err
		}
		src.SetLogger(logger)
		logger.Info("call set indexed", zap.Int("identifiers", src.Count()))
		return src, nil
	}

	logger.Info("input detected as genotype table", zap.String("path", path))
	src, err := NewTableSource(path)
	if err != nil {
		return nil, err
	}
	src.SetLogger(logger)
	logger.Info("genotype table loaded", zap.Int("snps", src.Count()))
	return src, nil
}
