package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/genomekit/genomekit/internal/microarray"
	"github.com/genomekit/genomekit/internal/pipeline"
)

func newMicroarrayCmd() *cobra.Command {
	var (
		bamFile  string
		cramFile string
		formats  string
		outDir   string
		refDir   string
		tempDir  string
		useGATK  bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "microarray",
		Short: "Generate consumer microarray files from a BAM or CRAM file",
		Long: `Run the variant-calling pipeline on a sequencing alignment and fan the
resulting combined genotype table out into consumer chip formats.
Intermediate artifacts are kept in the temp directory so interrupted
runs resume where they stopped.`,
		Example: `  genomekit microarray --bam sample.bam --outdir ./out
  genomekit microarray --cram sample.cram --outdir ./out --formats 23andMe_V3,Ancestry_V2
  genomekit microarray --bam sample.bam --outdir ./out --use-gatk`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := bamFile
			if input == "" {
				input = cramFile
			}

			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg := pipeline.DefaultConfig()
			cfg.OutputDir = outDir
			cfg.ReferenceDir = resolveRefDir(refDir)
			cfg.TempDir = tempDir
			cfg.UseGATK = useGATK
			if timeout > 0 {
				cfg.ProcessTimeout = timeout
			}

			selected, err := selectFormats(formats)
			if err != nil {
				return err
			}

			p, err := pipeline.New(cfg, input)
			if err != nil {
				return err
			}
			p.SetLogger(logger)

			sum, err := microarray.GenerateAll(cmd.Context(), cfg, p, selected, logger)
			if err != nil {
				if sum != nil {
					logger.Error("microarray generation had errors",
						zap.Strings("generated", sum.Generated),
						zap.Strings("failed", sum.Failed))
				}
				return err
			}

			if sum.Degraded {
				logger.Warn("outputs generated with errors and may be incomplete",
					zap.Strings("warnings", sum.Warnings))
			}
			fmt.Printf("Generated %d format(s) in %s\n", len(sum.Generated), outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&bamFile, "bam", "", "input BAM file")
	cmd.Flags().StringVar(&cramFile, "cram", "", "input CRAM file")
	cmd.Flags().StringVar(&formats, "formats", "all", "comma-separated list of formats to generate, or \"all\"")
	cmd.Flags().StringVar(&outDir, "outdir", "", "output directory for microarray files")
	cmd.Flags().StringVar(&refDir, "refdir", "", "directory containing reference files")
	cmd.Flags().StringVar(&tempDir, "tempdir", "", "directory for intermediate files (default: <outdir>/temp)")
	cmd.Flags().BoolVar(&useGATK, "use-gatk", false, "use GATK HaplotypeCaller instead of bcftools")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-process timeout (default: 2h)")

	cmd.MarkFlagsOneRequired("bam", "cram")
	cmd.MarkFlagsMutuallyExclusive("bam", "cram")
	_ = cmd.MarkFlagRequired("outdir")

	return cmd
}

// resolveRefDir picks the reference directory: flag, then config file,
// then the built-in default.
func resolveRefDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := viper.GetString("reference.dir"); v != "" {
		return v
	}
	return pipeline.DefaultConfig().ReferenceDir
}

// selectFormats expands "all" and validates explicit format lists.
func selectFormats(arg string) ([]string, error) {
	if strings.EqualFold(arg, "all") {
		return microarray.Formats, nil
	}
	var selected []string
	for _, f := range strings.Split(arg, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !microarray.IsValidFormat(f) {
			return nil, fmt.Errorf("unknown format %q (valid: %s)",
				f, strings.Join(microarray.Formats, ", "))
		}
		selected = append(selected, f)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no formats selected")
	}
	return selected, nil
}
