package microarray

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/genomekit/genomekit/internal/archive"
	"github.com/genomekit/genomekit/internal/pipeline"
)

// smallOutputBytes flags suspiciously small generated format files.
const smallOutputBytes = 1000

// KitSource produces the combined genotype table that every consumer
// format derives from. *pipeline.Pipeline is the production
// implementation.
type KitSource interface {
	GenerateCombinedKit(ctx context.Context) (*pipeline.Result, error)
}

// Summary reports a fan-out run across formats.
type Summary struct {
	Generated []string
	Failed    []string

	// Degraded and Warnings carry over the combined kit generation
	// status: the derived formats may be incomplete when set.
	Degraded bool
	Warnings []string
}

// Generator converts the combined kit at a known path into consumer
// format files in the configured output directory.
type Generator struct {
	cfg    pipeline.Config
	logger *zap.Logger
	kitTxt string
	kitZip string
	base   string
}

// New creates a generator over the combined kit text file. The packaged
// form is expected alongside it with a .zip extension.
func New(cfg pipeline.Config, combinedKitTxt string) *Generator {
	return &Generator{
		cfg:    cfg,
		logger: zap.NewNop(),
		kitTxt: combinedKitTxt,
		kitZip: strings.TrimSuffix(combinedKitTxt, ".txt") + ".zip",
		base:   strings.TrimSuffix(filepath.Base(combinedKitTxt), "_CombinedKit.txt"),
	}
}

// SetLogger sets the logger for conversion progress and reuse decisions.
func (g *Generator) SetLogger(l *zap.Logger) {
	g.logger = l
}

// FormatPath returns the uncompressed output path for a format.
func (g *Generator) FormatPath(format string) string {
	return filepath.Join(g.cfg.OutputDir, g.base+"_"+format+"."+TargetSuffix(format))
}

// FormatZip returns the packaged output path for a format.
func (g *Generator) FormatZip(format string) string {
	return filepath.Join(g.cfg.OutputDir, g.base+"_"+format+".zip")
}

// Generate produces the packaged file for one format, reusing a fresh
// existing package when present. The uncompressed intermediate is
// removed once packaging succeeds.
func (g *Generator) Generate(ctx context.Context, format string) error {
	if format == "CombinedKit" {
		return nil
	}
	if !IsValidFormat(format) {
		return fmt.Errorf("unknown format %q (valid: %s)", format, strings.Join(Formats, ", "))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.ensureCombinedKit(); err != nil {
		return err
	}

	outFile := g.FormatPath(format)
	outZip := g.FormatZip(format)

	if pipeline.IsValid(outZip, g.kitTxt, g.cfg.MinMicroarrayZip) {
		g.logger.Info("reusing existing format package",
			zap.String("format", format),
			zap.String("zip", outZip))
		return nil
	}

	inclusion, err := g.loadSNPList(format)
	if err != nil {
		g.logger.Warn("inclusion list unreadable, falling back to approximate filter",
			zap.String("format", format),
			zap.Error(err))
		inclusion = nil
	}
	if inclusion == nil {
		g.logger.Warn("no inclusion list for format, using approximate fallback filter",
			zap.String("format", format))
	} else {
		g.logger.Info("using explicit inclusion list",
			zap.String("format", format),
			zap.Int("snps", len(inclusion)))
	}

	included, err := g.filterRows(format, inclusion, outFile)
	if err != nil {
		return fmt.Errorf("convert combined kit to %s: %w", format, err)
	}
	g.logger.Info("format rows selected",
		zap.String("format", format),
		zap.Int("rows", included))

	if info, statErr := os.Stat(outFile); statErr == nil && info.Size() < smallOutputBytes {
		g.logger.Warn("generated file is very small, may be incomplete",
			zap.String("path", outFile))
	}

	if err := archive.Create(outZip, outFile); err != nil {
		return fmt.Errorf("package %s: %w", format, err)
	}
	if err := os.Remove(outFile); err != nil {
		g.logger.Warn("could not remove uncompressed format file",
			zap.String("path", outFile),
			zap.Error(err))
	}
	g.logger.Info("format generated",
		zap.String("format", format),
		zap.String("zip", outZip))
	return nil
}

// ensureCombinedKit makes the combined kit text available, unpacking
// the packaged form when only that exists.
func (g *Generator) ensureCombinedKit() error {
	if _, err := os.Stat(g.kitTxt); err == nil {
		return nil
	}
	if _, err := os.Stat(g.kitZip); err != nil {
		return fmt.Errorf("combined kit not found: %s", g.kitTxt)
	}
	g.logger.Info("combined kit text missing, extracting from package",
		zap.String("zip", g.kitZip))
	if err := archive.Extract(g.kitZip, g.cfg.OutputDir); err != nil {
		return fmt.Errorf("unpack combined kit: %w", err)
	}
	if _, err := os.Stat(g.kitTxt); err != nil {
		return fmt.Errorf("combined kit package did not contain %s", filepath.Base(g.kitTxt))
	}
	return nil
}

// loadSNPList reads the explicit inclusion list for a format. A missing
// file is not an error; it means the fallback filter applies.
func (g *Generator) loadSNPList(format string) (map[string]struct{}, error) {
	path := g.cfg.SNPListFile(format)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	list := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id != "" {
			list[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// filterRows streams the combined kit into outPath, passing the header
// through and keeping rows admitted by the inclusion list or the
// fallback filter. Returns the number of rows kept.
func (g *Generator) filterRows(format string, inclusion map[string]struct{}, outPath string) (int, error) {
	in, err := os.Open(g.kitTxt)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(out)

	included := 0
	sc := bufio.NewScanner(in)
	if sc.Scan() {
		w.WriteString(sc.Text())
		w.WriteByte('\n')
	}
	for sc.Scan() {
		line := sc.Text()
		id, _, _ := strings.Cut(line, "\t")
		id = strings.TrimSpace(id)

		var keep bool
		if inclusion != nil {
			_, keep = inclusion[id]
		} else {
			keep = fallbackAdmit(format, id)
		}
		if keep {
			w.WriteString(line)
			w.WriteByte('\n')
			included++
		}
	}
	if err := sc.Err(); err != nil {
		out.Close()
		return included, err
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return included, err
	}
	return included, out.Close()
}

// GenerateAll produces the combined kit via src and fans it out into
// the requested formats. Per-format failures are collected rather than
// aborting; combined kit failure is fatal.
//
// The combined kit's text form is working state: when CombinedKit was
// itself requested only its packaged form is kept, otherwise the
// package is dropped and the text left behind for later runs.
func GenerateAll(ctx context.Context, cfg pipeline.Config, src KitSource, formats []string, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, f := range formats {
		if !IsValidFormat(f) {
			return nil, fmt.Errorf("unknown format %q (valid: %s)", f, strings.Join(Formats, ", "))
		}
	}

	res, err := src.GenerateCombinedKit(ctx)
	if err != nil {
		return nil, fmt.Errorf("combined kit generation failed: %w", err)
	}

	sum := &Summary{Degraded: res.Degraded, Warnings: res.Warnings}

	g := New(cfg, res.CombinedKitTxt)
	g.SetLogger(logger)

	saveCombined := false
	for _, f := range formats {
		if f == "CombinedKit" {
			saveCombined = true
			sum.Generated = append(sum.Generated, f)
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := g.Generate(ctx, f); err != nil {
			logger.Error("format generation failed",
				zap.String("format", f),
				zap.Error(err))
			sum.Failed = append(sum.Failed, f)
			continue
		}
		sum.Generated = append(sum.Generated, f)
	}

	if saveCombined {
		if err := os.Remove(res.CombinedKitTxt); err == nil {
			logger.Info("removed combined kit text, keeping package",
				zap.String("zip", res.CombinedKitZip))
		}
	} else if err := os.Remove(res.CombinedKitZip); err == nil {
		logger.Info("removed combined kit package",
			zap.String("zip", res.CombinedKitZip))
	}

	if len(sum.Failed) > 0 {
		return sum, fmt.Errorf("generated %d of %d formats", len(sum.Generated), len(formats))
	}
	return sum, nil
}
