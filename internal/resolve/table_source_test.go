package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `# This data file generated by a consumer genotyping service
# rsid	chromosome	position	genotype
rs1801133	1	11796321	AG
rs1800629	6	31575254	G
rs4680	22	19963748	A/A
rs731236	12	47844974	C|T
rs9999999	3	123456	ZZ
badrow
chr only two
`

func newTestTableSource(t *testing.T) *TableSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "microarray.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o644))
	src, err := NewTableSource(path)
	require.NoError(t, err)
	return src
}

func TestTableSource_Lookup(t *testing.T) {
	src := newTestTableSource(t)

	call, gt := src.Resolve(Coordinate{}, "rs1801133")
	assert.Equal(t, "A/G", call)
	assert.Equal(t, "A/G", gt.String())
}

func TestTableSource_SingleAlleleExpands(t *testing.T) {
	src := newTestTableSource(t)

	_, gt := src.Resolve(Coordinate{}, "rs1800629")
	assert.Equal(t, "G/G", gt.String())
}

func TestTableSource_DelimitedGenotypes(t *testing.T) {
	src := newTestTableSource(t)

	_, gt := src.Resolve(Coordinate{}, "rs4680")
	assert.Equal(t, "A/A", gt.String())

	_, gt = src.Resolve(Coordinate{}, "rs731236")
	assert.Equal(t, "C/T", gt.String())
}

func TestTableSource_InvalidGenotypeRowSkipped(t *testing.T) {
	src := newTestTableSource(t)

	_, gt := src.Resolve(Coordinate{}, "rs9999999")
	assert.True(t, gt.IsUnknown(), "row with invalid genotype token must not load")
}

func TestTableSource_NoCoordinateFallback(t *testing.T) {
	src := newTestTableSource(t)

	// rs1801133 lives at 1:11796321, but table sources only resolve by id.
	coord := Coordinate{Chrom: "1", Pos: 11796321}
	call, gt := src.Resolve(coord, "rsUnlisted")
	assert.Equal(t, "0/0", call)
	assert.True(t, gt.IsUnknown())
}

func TestTableSource_Sequential(t *testing.T) {
	src := newTestTableSource(t)
	assert.False(t, src.Concurrent())
	assert.Equal(t, 4, src.Count())
}

func TestIsVCF(t *testing.T) {
	dir := t.TempDir()

	vcfPath := filepath.Join(dir, "calls.vcf")
	require.NoError(t, os.WriteFile(vcfPath, []byte("##fileformat=VCFv4.2\n"), 0o644))
	assert.True(t, IsVCF(vcfPath))

	// Extension alone is decisive.
	assert.True(t, IsVCF(filepath.Join(dir, "missing.vcf.gz")))

	tablePath := filepath.Join(dir, "microarray.txt")
	require.NoError(t, os.WriteFile(tablePath, []byte("# rsid\tchromosome\tposition\tgenotype\nrs1\t1\t2\tAA\n"), 0o644))
	assert.False(t, IsVCF(tablePath))

	headerless := filepath.Join(dir, "content.txt")
	require.NoError(t, os.WriteFile(headerless, []byte("##contig=<ID=1>\n"), 0o644))
	assert.True(t, IsVCF(headerless))
}
