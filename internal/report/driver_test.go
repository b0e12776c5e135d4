package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genomekit/genomekit/internal/catalog"
	"github.com/genomekit/genomekit/internal/classify"
	"github.com/genomekit/genomekit/internal/genotype"
	"github.com/genomekit/genomekit/internal/resolve"
)

// fakeSource serves canned genotypes with optional per-lookup delay, and
// counts lookups so tests can assert none happened.
type fakeSource struct {
	genotypes  map[string]genotype.Genotype
	delays     map[string]time.Duration
	concurrent bool
	lookups    atomic.Int64
}

func (f *fakeSource) Resolve(_ resolve.Coordinate, id string) (string, genotype.Genotype) {
	f.lookups.Add(1)
	if d, ok := f.delays[id]; ok {
		time.Sleep(d)
	}
	gt, ok := f.genotypes[id]
	if !ok {
		return "0/0", genotype.Unknown
	}
	return gt.String(), gt
}

func (f *fakeSource) Concurrent() bool {
	return f.concurrent
}

const testCatalog = `{
  "categories": {
    "a": [
      {"rs_id": "rs1", "position": "1:100", "ref_genotype": "A/G", "alt_genotype": "G/G", "description": "first"},
      {"rs_id": "rs2", "position": "1:200", "ref_genotype": "C/C", "alt_genotype": "T/T", "description": "second"}
    ],
    "b": [
      {"rs_id": "rs3", "position": "chr2:300", "ref_genotype": "G/G", "alt_genotype": "A/A", "description": "third"},
      {"rs_id": "rs4", "position": "bogus", "ref_genotype": "A/A", "alt_genotype": "G/G", "description": "fourth"}
    ]
  }
}`

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	return cat
}

func TestDriver_RequestedOrderSurvivesConcurrency(t *testing.T) {
	cat := loadTestCatalog(t)
	src := &fakeSource{
		genotypes: map[string]genotype.Genotype{
			"rs1": genotype.New("G", "A"), // reversed protective -> GOOD
			"rs2": genotype.New("A", "G"), // matches nothing, het -> CARRIER
			"rs3": genotype.New("A", "A"), // risk -> RISK
		},
		// Make section "b" (requested first) finish last.
		delays:     map[string]time.Duration{"rs3": 30 * time.Millisecond},
		concurrent: true,
	}

	d := NewDriver(cat, src)
	results, err := d.Run(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "b", results[0].Name)
	assert.Equal(t, "a", results[1].Name)

	// Entries stay in catalog order.
	require.Len(t, results[1].Results, 2)
	assert.Equal(t, "rs1", results[1].Results[0].RSID)
	assert.Equal(t, "rs2", results[1].Results[1].RSID)
}

func TestDriver_Classification(t *testing.T) {
	cat := loadTestCatalog(t)
	src := &fakeSource{
		genotypes: map[string]genotype.Genotype{
			"rs1": genotype.New("G", "A"),
			"rs2": genotype.New("A", "G"),
			"rs3": genotype.New("A", "A"),
		},
		concurrent: true,
	}

	d := NewDriver(cat, src)
	results, err := d.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	a := results[0].Results
	assert.Equal(t, "A/G", a[0].Genotype, "reversed rendering should be displayed")
	assert.Equal(t, classify.StatusGood, a[0].Status)
	assert.Equal(t, classify.StatusCarrier, a[1].Status)
	assert.Equal(t, "first", a[0].Interpretation)

	b := results[1].Results
	assert.Equal(t, classify.StatusRisk, b[0].Status)
}

func TestDriver_PerEntryErrorIsIsolated(t *testing.T) {
	cat := loadTestCatalog(t)
	src := &fakeSource{concurrent: true}

	d := NewDriver(cat, src)
	results, err := d.Run(context.Background(), []string{"b"})
	require.NoError(t, err)

	rows := results[0].Results
	require.Len(t, rows, 2, "a bad entry must not abort its section")
	assert.Equal(t, classify.StatusError, rows[1].Status)
	assert.Contains(t, rows[1].Interpretation, "bogus")
	// rs3 has no canned genotype: unknown, not an error.
	assert.Equal(t, classify.StatusUnknown, rows[0].Status)
}

func TestDriver_UnknownSectionFailsBeforeLookups(t *testing.T) {
	cat := loadTestCatalog(t)
	src := &fakeSource{concurrent: true}

	d := NewDriver(cat, src)
	_, err := d.Run(context.Background(), []string{"a", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Contains(t, err.Error(), "a, b", "error should name the valid sections")
	assert.Zero(t, src.lookups.Load(), "no lookup may run for an invalid request")
}

func TestDriver_SequentialSource(t *testing.T) {
	cat := loadTestCatalog(t)
	src := &fakeSource{
		genotypes:  map[string]genotype.Genotype{"rs1": genotype.New("A", "G")},
		concurrent: false,
	}

	d := NewDriver(cat, src)
	results, err := d.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, classify.StatusGood, results[0].Results[0].Status)
}

func TestDriver_ContextCancellation(t *testing.T) {
	cat := loadTestCatalog(t)
	src := &fakeSource{concurrent: false}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(cat, src)
	_, err := d.Run(ctx, []string{"a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriter_Render(t *testing.T) {
	var sb strings.Builder
	w := NewWriter(&sb)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteSection(SectionResult{
		Name: "metabolism",
		Results: []Result{
			{RSID: "rs1", Genotype: "A/G", Status: classify.StatusGood, Interpretation: "ok"},
		},
	}))
	require.NoError(t, w.Flush())

	out := sb.String()
	assert.Contains(t, out, "RSID")
	assert.Contains(t, out, " Metabolism ")
	assert.Contains(t, out, "GOOD")
	assert.Contains(t, out, "rs1")
}
