package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/genomekit/genomekit/internal/archive"
)

// defaultPloidy is the diploid specification synthesized when the
// reference directory carries no ploidy file.
const defaultPloidy = "* * * F 2\n* * * M 2\n"

// minimalKitHeader is written when no combined kit header template exists.
const minimalKitHeader = "# rsid\tchromosome\tposition\tgenotype\n"

// Result reports a combined kit generation run.
type Result struct {
	CombinedKitTxt string
	CombinedKitZip string

	// Reused is true when a valid combined kit already existed and no
	// stage ran.
	Reused bool

	// Degraded is true when a non-fatal stage failed; the combined kit
	// exists but may be incomplete.
	Degraded bool
	Warnings []string
}

// Pipeline produces the combined genotype table from one alignment file.
//
// Stages run in a fixed order (pileup, call, annotate, index, extract,
// normalize, assemble), each skipped when its artifact is still valid per
// IsValid. Intermediates persist in the temp directory across runs so an
// interrupted run resumes where it stopped.
type Pipeline struct {
	cfg    Config
	runner Runner
	logger *zap.Logger
	input  string
	base   string
}

// New creates a pipeline for the given alignment file, creating the
// output and temp directories.
func New(cfg Config, inputFile string) (*Pipeline, error) {
	abs, err := filepath.Abs(inputFile)
	if err != nil {
		return nil, fmt.Errorf("resolve input path: %w", err)
	}
	if !exists(abs) {
		return nil, fmt.Errorf("alignment file not found: %s", abs)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.MkdirAll(cfg.EffectiveTempDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	base, _, _ := strings.Cut(filepath.Base(abs), ".")
	return &Pipeline{
		cfg:    cfg,
		runner: NewExecRunner(cfg.ProcessTimeout, zap.NewNop()),
		logger: zap.NewNop(),
		input:  abs,
		base:   base,
	}, nil
}

// SetLogger sets the logger for stage progress and reuse decisions.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
	if r, ok := p.runner.(*ExecRunner); ok {
		r.Logger = l
	}
}

// SetRunner substitutes the external process runner.
func (p *Pipeline) SetRunner(r Runner) {
	p.runner = r
}

func (p *Pipeline) tempPath(suffix string) string {
	return filepath.Join(p.cfg.EffectiveTempDir(), p.base+suffix)
}

// CombinedKitTxt returns the combined kit text artifact path.
func (p *Pipeline) CombinedKitTxt() string {
	return filepath.Join(p.cfg.OutputDir, p.base+"_CombinedKit.txt")
}

// CombinedKitZip returns the packaged combined kit path.
func (p *Pipeline) CombinedKitZip() string {
	return filepath.Join(p.cfg.OutputDir, p.base+"_CombinedKit.zip")
}

// GenerateCombinedKit runs the pipeline to completion or reuses an
// existing valid combined kit.
//
// Failures of the calling stage and missing reference files are fatal.
// Annotate, index, extract and normalize failures degrade the run: they
// are recorded and processing continues best-effort. The run succeeds only
// if the packaged kit ends up present and above the size threshold.
func (p *Pipeline) GenerateCombinedKit(ctx context.Context) (*Result, error) {
	res := &Result{
		CombinedKitTxt: p.CombinedKitTxt(),
		CombinedKitZip: p.CombinedKitZip(),
	}

	if IsValid(res.CombinedKitZip, p.input, p.cfg.MinKitSize) {
		if IsValid(res.CombinedKitTxt, p.input, p.cfg.MinKitSize) {
			p.logger.Info("reusing existing combined kit",
				zap.String("zip", res.CombinedKitZip))
			res.Reused = true
			return res, nil
		}
		p.logger.Info("reusing packaged combined kit, extracting text form",
			zap.String("zip", res.CombinedKitZip))
		if err := archive.Extract(res.CombinedKitZip, p.cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("unpack combined kit: %w", err)
		}
		res.Reused = true
		return res, nil
	}

	if !exists(p.cfg.ReferenceGenome()) {
		return nil, fmt.Errorf("reference genome not found: %s", p.cfg.ReferenceGenome())
	}
	if !exists(p.cfg.DBSNP()) {
		return nil, fmt.Errorf("reference variant database not found: %s", p.cfg.DBSNP())
	}

	calledVCF := p.tempPath("_called.vcf.gz")
	annotatedVCF := p.tempPath("_annotated.vcf.gz")
	resultTab := p.tempPath("_result.tab")
	sortedTab := p.tempPath("_result_sorted.tab")

	// Calling is the one stage whose failure aborts the run: without a
	// call set nothing downstream is meaningful.
	if IsValid(calledVCF, p.input, 0) {
		p.logger.Info("reusing called VCF", zap.String("path", calledVCF))
	} else if err := p.runCallStage(ctx, calledVCF); err != nil {
		return nil, err
	}

	degrade := func(stage string, err error) {
		p.logger.Warn("stage failed, continuing best-effort",
			zap.String("stage", stage),
			zap.Error(err))
		res.Degraded = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", stage, err))
	}

	// Annotate the call set with dbSNP identifiers.
	if IsValid(annotatedVCF, calledVCF, 0) {
		p.logger.Info("reusing annotated VCF", zap.String("path", annotatedVCF))
	} else {
		if !exists(calledVCF + ".tbi") {
			if err := p.runner.Run(ctx, p.cfg.Tabix, "-p", "vcf", calledVCF); err != nil {
				degrade("index-called", err)
			}
		}
		if err := p.runner.Run(ctx, p.cfg.BCFtools,
			"annotate", "-Oz", "-a", p.cfg.DBSNP(), "-c", "CHROM,POS,ID",
			"-o", annotatedVCF, calledVCF); err != nil {
			degrade("annotate", err)
		}
	}

	if !exists(annotatedVCF+".tbi") && !exists(resultTab) && exists(annotatedVCF) {
		if err := p.runner.Run(ctx, p.cfg.Tabix, "-p", "vcf", annotatedVCF); err != nil {
			degrade("index-annotated", err)
		}
	}

	// Extract id, coordinate and genotype columns.
	if IsValid(resultTab, annotatedVCF, 0) {
		p.logger.Info("reusing extracted table", zap.String("path", resultTab))
	} else if err := p.runner.Run(ctx, p.cfg.BCFtools,
		"query", "-f", `%ID\t%CHROM\t%POS[\t%TGT]\n`,
		"-o", resultTab, annotatedVCF); err != nil {
		degrade("extract", err)
	}

	// Normalize chromosome naming and allele order, then sort by position.
	if IsValid(sortedTab, resultTab, 0) {
		p.logger.Info("reusing normalized table", zap.String("path", sortedTab))
	} else if err := p.runner.Run(ctx, p.cfg.Shell, "-c",
		p.normalizeScript(resultTab, sortedTab)); err != nil {
		degrade("normalize", err)
	}

	// Assemble header + sorted rows into the combined kit.
	if IsValid(res.CombinedKitTxt, sortedTab, p.cfg.MinKitSize) {
		p.logger.Info("reusing combined kit text", zap.String("path", res.CombinedKitTxt))
	} else if err := p.assemble(sortedTab, res.CombinedKitTxt); err != nil {
		degrade("assemble", err)
	}

	if IsValid(res.CombinedKitZip, res.CombinedKitTxt, p.cfg.MinKitSize) {
		p.logger.Info("reusing packaged combined kit", zap.String("path", res.CombinedKitZip))
	} else if err := archive.Create(res.CombinedKitZip, res.CombinedKitTxt); err != nil {
		degrade("package", err)
	}

	if fileSize(res.CombinedKitZip) <= p.cfg.MinKitSize {
		return nil, fmt.Errorf("combined kit generation failed: %s missing or below %d bytes",
			res.CombinedKitZip, p.cfg.MinKitSize)
	}

	if res.Degraded {
		p.logger.Warn("combined kit produced with errors; it may be incomplete",
			zap.Strings("warnings", res.Warnings))
	} else {
		p.logger.Info("combined kit produced", zap.String("zip", res.CombinedKitZip))
	}
	return res, nil
}

// runCallStage produces the called VCF with the configured backend.
func (p *Pipeline) runCallStage(ctx context.Context, calledVCF string) error {
	if p.cfg.UseGATK {
		return p.callWithGATK(ctx, calledVCF)
	}
	return p.callWithBCFtools(ctx, calledVCF)
}

func (p *Pipeline) callWithBCFtools(ctx context.Context, calledVCF string) error {
	pileupVCF := p.tempPath("_pileup.vcf.gz")

	if IsValid(pileupVCF, p.input, 0) {
		p.logger.Info("reusing pileup VCF", zap.String("path", pileupVCF))
	} else {
		if err := p.runner.Run(ctx, p.cfg.BCFtools,
			"mpileup", "-B", "-I", "-C", "50",
			"-f", p.cfg.ReferenceGenome(),
			"-Oz", "-o", pileupVCF, p.input); err != nil {
			return fmt.Errorf("pileup generation failed: %w", err)
		}
	}

	ploidy, err := p.ensurePloidyFile()
	if err != nil {
		return err
	}

	if err := p.runner.Run(ctx, p.cfg.BCFtools,
		"call", pileupVCF,
		"--ploidy-file", ploidy,
		"-V", "indels", "-m", "-P", "0",
		"--threads", strconv.Itoa(p.cfg.Threads),
		"-Oz", "-o", calledVCF); err != nil {
		return fmt.Errorf("variant calling failed: %w", err)
	}
	return nil
}

func (p *Pipeline) callWithGATK(ctx context.Context, calledVCF string) error {
	gvcf := p.tempPath("_gatk.g.vcf.gz")

	if IsValid(gvcf, p.input, 0) {
		p.logger.Info("reusing GATK GVCF", zap.String("path", gvcf))
	} else {
		hmmThreads := min(8, p.cfg.Threads)
		if err := p.runner.Run(ctx, p.cfg.GATK,
			"--java-options", "-Xmx16G", "HaplotypeCaller",
			"-R", p.cfg.ReferenceGenome(),
			"-I", p.input,
			"-O", gvcf,
			"-ERC", "GVCF",
			"--native-pair-hmm-threads", strconv.Itoa(hmmThreads)); err != nil {
			return fmt.Errorf("HaplotypeCaller failed: %w", err)
		}
	}

	if err := p.runner.Run(ctx, p.cfg.GATK,
		"--java-options", "-Xmx8G", "GenotypeGVCFs",
		"-R", p.cfg.ReferenceGenome(),
		"-V", gvcf,
		"-O", calledVCF); err != nil {
		return fmt.Errorf("GenotypeGVCFs failed: %w", err)
	}
	return nil
}

// ensurePloidyFile returns the ploidy specification path, synthesizing a
// default diploid file when none exists.
func (p *Pipeline) ensurePloidyFile() (string, error) {
	path := p.cfg.PloidyFile()
	if exists(path) {
		return path, nil
	}
	p.logger.Warn("ploidy file missing, writing default diploid specification",
		zap.String("path", path))
	if err := os.WriteFile(path, []byte(defaultPloidy), 0o644); err != nil {
		return "", fmt.Errorf("write default ploidy file: %w", err)
	}
	return path, nil
}

// normalizeScript builds the shell pipeline that strips "chr" prefixes,
// renames M to MT, collapses genotype separators, rewrites missing calls
// and orders heterozygote alleles, then sorts by chromosome and position.
func (p *Pipeline) normalizeScript(in, out string) string {
	sedExpr := `s/chr//; s/\tM\t/\tMT\t/g; s/\///; s/\.\.$/--/; ` +
		`s/TA$/AT/; s/TC$/CT/; s/TG$/GT/; s/GA$/AG/; s/GC$/CG/; s/CA$/AC/`
	return fmt.Sprintf("sed '%s' '%s' | sort -t '\t' -k2,3 -V > '%s'", sedExpr, in, out)
}

// assemble concatenates the format header template and the normalized
// rows into the combined kit text file.
func (p *Pipeline) assemble(sortedTab, kitTxt string) error {
	header, err := p.ensureKitHeader()
	if err != nil {
		return err
	}

	out, err := os.Create(kitTxt)
	if err != nil {
		return fmt.Errorf("create combined kit: %w", err)
	}

	for _, part := range []string{header, sortedTab} {
		f, err := os.Open(part)
		if err != nil {
			out.Close()
			return fmt.Errorf("assemble combined kit: %w", err)
		}
		_, err = io.Copy(out, f)
		f.Close()
		if err != nil {
			out.Close()
			return fmt.Errorf("assemble combined kit: %w", err)
		}
	}
	return out.Close()
}

// ensureKitHeader returns the header template path, writing a minimal one
// when the reference directory has none.
func (p *Pipeline) ensureKitHeader() (string, error) {
	path := p.cfg.KitTemplateHeader()
	if exists(path) {
		return path, nil
	}
	p.logger.Warn("kit header template missing, writing minimal header",
		zap.String("path", path))
	if err := os.WriteFile(path, []byte(minimalKitHeader), 0o644); err != nil {
		return "", fmt.Errorf("write kit header template: %w", err)
	}
	return path, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}
