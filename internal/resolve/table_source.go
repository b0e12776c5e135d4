package resolve

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/genomekit/genomekit/internal/genotype"
)

var (
	rsIDPattern     = regexp.MustCompile(`^rs\d+`)
	rawGTPattern    = regexp.MustCompile(`(?i)^[ACGTN-]{1,2}$`)
	pairedGTPattern = regexp.MustCompile(`(?i)^[ACGTN-][/|][ACGTN-]$`)
	fieldSplitter   = regexp.MustCompile(`[\t ,]`)
)

// TableSource resolves genotypes from a flat microarray-style genotype
// table preloaded into memory. Lookups are by identifier only: the table
// format carries no usable coordinate index, so there is no coordinate
// fallback.
type TableSource struct {
	data   map[string]string // rsid -> raw genotype token
	logger *zap.Logger
}

// NewTableSource loads the genotype table at path. Rows are tab, space or
// comma separated; the identifier is the first rs-prefixed field and the
// genotype the first field that looks like a 1-2 character allele token or
// a delimited pair. Comment lines and rows without both are skipped.
func NewTableSource(path string) (*TableSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genotype table: %w", err)
	}
	defer f.Close()

	s := &TableSource{
		data:   make(map[string]string),
		logger: zap.NewNop(),
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		s.addLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read genotype table: %w", err)
	}
	return s, nil
}

func (s *TableSource) addLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	parts := fieldSplitter.Split(line, -1)
	if len(parts) < 3 {
		return
	}

	var rsid string
	for _, part := range parts {
		if rsIDPattern.MatchString(part) {
			rsid = part
			break
		}
	}
	if rsid == "" {
		return
	}

	var raw string
	// 23andMe layout: rsid, chromosome, position, genotype.
	if len(parts) >= 4 && rsid == parts[0] && rawGTPattern.MatchString(parts[3]) {
		raw = strings.ToUpper(parts[3])
	}
	if raw == "" {
		for _, part := range parts {
			if pairedGTPattern.MatchString(part) {
				raw = strings.ToUpper(part[:1] + part[2:])
				break
			}
		}
	}
	if raw == "" {
		for _, part := range parts[1:] {
			if rawGTPattern.MatchString(part) {
				raw = strings.ToUpper(part)
				break
			}
		}
	}
	if raw != "" {
		s.data[rsid] = raw
	}
}

// SetLogger sets the logger for lookup diagnostics.
func (s *TableSource) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Concurrent reports false: the table is a single in-memory map and
// sequential processing is already cheap.
func (s *TableSource) Concurrent() bool {
	return false
}

// Count returns the number of loaded genotypes.
func (s *TableSource) Count() int {
	return len(s.data)
}

// Resolve looks up the identifier in the preloaded table.
func (s *TableSource) Resolve(_ Coordinate, id string) (string, genotype.Genotype) {
	raw, ok := s.data[id]
	if !ok {
		s.logger.Debug("rsid not present in genotype table", zap.String("rsid", id))
		return refPairCall, genotype.Unknown
	}
	gt, err := genotype.ParseRaw(raw)
	if err != nil {
		s.logger.Debug("unparseable genotype token",
			zap.String("rsid", id),
			zap.String("token", raw))
		return refPairCall, genotype.Unknown
	}
	// For table sources the call code and the genotype are the same thing.
	return gt.String(), gt
}
