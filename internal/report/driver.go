// Package report runs catalog-driven genotype classification and renders
// the results.
package report

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/genomekit/genomekit/internal/catalog"
	"github.com/genomekit/genomekit/internal/classify"
	"github.com/genomekit/genomekit/internal/resolve"
)

// Result is the classification outcome for a single catalog entry.
type Result struct {
	RSID           string
	Genotype       string
	Status         classify.Status
	Interpretation string
}

// SectionResult holds the ordered results for one catalog section.
type SectionResult struct {
	Name    string
	Results []Result
}

// Driver resolves and classifies catalog entries section by section.
type Driver struct {
	catalog *catalog.Catalog
	source  resolve.Source
	logger  *zap.Logger
	workers int
}

// NewDriver creates a driver over the given catalog and genotype source.
func NewDriver(cat *catalog.Catalog, source resolve.Source) *Driver {
	return &Driver{
		catalog: cat,
		source:  source,
		logger:  zap.NewNop(),
		workers: 2 * runtime.NumCPU(),
	}
}

// SetLogger sets the logger for progress and diagnostics.
func (d *Driver) SetLogger(l *zap.Logger) {
	d.logger = l
}

// SetWorkers bounds the section fan-out. Values below 1 reset the default.
func (d *Driver) SetWorkers(n int) {
	if n < 1 {
		n = 2 * runtime.NumCPU()
	}
	d.workers = n
}

// Run classifies every entry of the requested sections.
//
// Output order is the requested section order with entries in catalog
// order, regardless of execution order. Sources that support concurrent
// lookups are fanned out one task per section over a bounded group; each
// task fills its own result slot, so the merge is just the final slice.
// An unknown section name fails the whole request before any lookup.
func (d *Driver) Run(ctx context.Context, sections []string) ([]SectionResult, error) {
	for _, name := range sections {
		if !d.catalog.Has(name) {
			return nil, fmt.Errorf("unknown section %q (available: %s)",
				name, strings.Join(d.catalog.SectionNames(), ", "))
		}
	}

	results := make([]SectionResult, len(sections))

	if !d.source.Concurrent() {
		for i, name := range sections {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = d.runSection(name)
		}
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(min(len(sections), d.workers))
	for i, name := range sections {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = d.runSection(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Driver) runSection(name string) SectionResult {
	sec, _ := d.catalog.Section(name)
	out := SectionResult{Name: name, Results: make([]Result, 0, len(sec.Entries))}

	for _, entry := range sec.Entries {
		out.Results = append(out.Results, d.runEntry(entry))
	}
	return out
}

// runEntry resolves and classifies one entry. Failures become ERROR-status
// results carrying the failure message; they never abort the section.
func (d *Driver) runEntry(entry catalog.Entry) Result {
	coord, err := resolve.ParseCoordinate(entry.Position)
	if err != nil {
		d.logger.Warn("bad catalog position",
			zap.String("rsid", entry.RSID),
			zap.Error(err))
		return Result{
			RSID:           entry.RSID,
			Genotype:       "Error",
			Status:         classify.StatusError,
			Interpretation: err.Error(),
		}
	}

	call, gt := d.source.Resolve(coord, entry.RSID)
	display, status := classify.Classify(gt, entry.Protective, entry.Risk)

	d.logger.Debug("classified entry",
		zap.String("rsid", entry.RSID),
		zap.String("call", call),
		zap.String("genotype", display.String()),
		zap.Stringer("status", status))

	return Result{
		RSID:           entry.RSID,
		Genotype:       display.String(),
		Status:         status,
		Interpretation: entry.Description,
	}
}
