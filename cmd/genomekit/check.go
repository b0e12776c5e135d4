package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/genomekit/genomekit/internal/catalog"
	"github.com/genomekit/genomekit/internal/report"
	"github.com/genomekit/genomekit/internal/resolve"
)

func newCheckCmd() *cobra.Command {
	var (
		catalogPath string
		sections    string
		outputFile  string
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "check <genotype-file>",
		Short: "Classify genotypes against the variant catalog",
		Long: `Look up each catalog variant in a genotype file and classify it as
GOOD, RISK, CARRIER, VARIANT or UNKNOWN. The input may be a VCF
(plain or gzipped) or a flat genotype table such as a microarray
export; the format is detected automatically.`,
		Example: `  genomekit check sample.vcf.gz
  genomekit check --section longevity,methylation combined_kit.txt
  genomekit check -o report.txt sample.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cat, err := catalog.Load(resolveCatalogPath(catalogPath))
			if err != nil {
				return err
			}

			src, err := resolve.NewSource(args[0], logger)
			if err != nil {
				return err
			}

			drv := report.NewDriver(cat, src)
			drv.SetLogger(logger)
			if workers > 0 {
				drv.SetWorkers(workers)
			}

			selected := selectSections(sections, cat)
			results, err := drv.Run(cmd.Context(), selected)
			if err != nil {
				return err
			}

			out := os.Stdout
			if outputFile != "" {
				out, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer out.Close()
			}

			w := report.NewWriter(out)
			if err := w.WriteHeader(); err != nil {
				return err
			}
			for _, sr := range results {
				if err := w.WriteSection(sr); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "variant catalog JSON file (default: snp_catalog.json)")
	cmd.Flags().StringVarP(&sections, "section", "s", "all", "comma-separated catalog sections to check, or \"all\"")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent catalog lookups (default: 2x CPU cores)")

	return cmd
}

// resolveCatalogPath picks the catalog file: flag, then config file,
// then the conventional name in the working directory.
func resolveCatalogPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := viper.GetString("catalog.path"); v != "" {
		return v
	}
	return "snp_catalog.json"
}

// selectSections expands "all" into every catalog section, preserving
// catalog order. Explicit names are passed through for the driver to
// validate.
func selectSections(arg string, cat *catalog.Catalog) []string {
	if strings.EqualFold(arg, "all") {
		return cat.SectionNames()
	}
	var selected []string
	for _, s := range strings.Split(arg, ",") {
		if s = strings.TrimSpace(s); s != "" {
			selected = append(selected, s)
		}
	}
	return selected
}
