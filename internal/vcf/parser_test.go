package vcf

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleVCF = "##fileformat=VCFv4.2\n" +
	"##source=test\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tSAMPLE1\n" +
	"chr1\t11796321\trs1801133\tG\tA\t50\tPASS\tDP=30\tGT:DP\t0/1:30\n" +
	"chr6\t31575254\trs1800629\tG\tA\t99\tPASS\t.\tGT\t1|1\n" +
	"chr2\t1000\t.\tC\tT,G\t10\tPASS\tDP=5;DB\tGT\t1/2\n"

func writeVCF(t *testing.T, content string, gzipped bool) string {
	t.Helper()
	name := "test.vcf"
	if gzipped {
		name = "test.vcf.gz"
	}
	path := filepath.Join(t.TempDir(), name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test vcf: %v", err)
	}
	defer f.Close()

	if gzipped {
		gz := gzip.NewWriter(f)
		if _, err := gz.Write([]byte(content)); err != nil {
			t.Fatalf("write gzip vcf: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("close gzip writer: %v", err)
		}
	} else if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write test vcf: %v", err)
	}
	return path
}

func TestParser_Records(t *testing.T) {
	p, err := NewParser(writeVCF(t, sampleVCF, false))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	defer p.Close()

	r, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if r == nil {
		t.Fatal("expected a record")
	}
	if r.Chrom != "chr1" || r.Pos != 11796321 || r.ID != "rs1801133" {
		t.Errorf("unexpected first record: %+v", r)
	}
	if r.NormalizeChrom() != "1" {
		t.Errorf("NormalizeChrom = %q, want 1", r.NormalizeChrom())
	}
	if got := r.GenotypeCall(); got != "0/1" {
		t.Errorf("GenotypeCall = %q, want 0/1", got)
	}
	if r.Info["DP"] != "30" {
		t.Errorf("INFO DP = %q, want 30", r.Info["DP"])
	}
	if !r.HasID() {
		t.Error("record should have an identifier")
	}
}

func TestParser_PipeSeparatedGenotype(t *testing.T) {
	p, err := NewParser(writeVCF(t, sampleVCF, false))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	defer p.Close()

	p.Next() // skip first
	r, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := r.GenotypeCall(); got != "1/1" {
		t.Errorf("GenotypeCall = %q, want 1/1 (pipe normalized)", got)
	}
}

func TestParser_MultiAllelic(t *testing.T) {
	p, err := NewParser(writeVCF(t, sampleVCF, false))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	defer p.Close()

	p.Next()
	p.Next()
	r, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	alts := r.AltAlleles()
	if len(alts) != 2 || alts[0] != "T" || alts[1] != "G" {
		t.Errorf("AltAlleles = %v, want [T G]", alts)
	}
	if r.HasID() {
		t.Error("record with ID '.' should not report an identifier")
	}
	if _, ok := r.Info["DB"]; !ok {
		t.Error("flag INFO field DB should be present")
	}

	// End of input.
	r, err = p.Next()
	if err != nil || r != nil {
		t.Errorf("expected end of input, got %v, %v", r, err)
	}
}

func TestParser_Gzip(t *testing.T) {
	p, err := NewParser(writeVCF(t, sampleVCF, true))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	defer p.Close()

	count := 0
	for {
		r, err := p.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if r == nil {
			break
		}
		count++
	}
	if count != 3 {
		t.Errorf("read %d records from gzip vcf, want 3", count)
	}
	if len(p.SampleNames()) != 1 || p.SampleNames()[0] != "SAMPLE1" {
		t.Errorf("SampleNames = %v, want [SAMPLE1]", p.SampleNames())
	}
}

func TestParser_MissingHeader(t *testing.T) {
	_, err := NewParser(writeVCF(t, "chr1\t1\t.\tA\tG\t.\tPASS\t.\n", false))
	if err == nil {
		t.Fatal("expected error for VCF without #CHROM header")
	}
	if !strings.Contains(err.Error(), "#CHROM") {
		t.Errorf("error should mention missing #CHROM line: %v", err)
	}
}

func TestParser_BadColumnCount(t *testing.T) {
	content := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\nchr1\t123\n"
	p, err := NewParserFromReader(strings.NewReader(content))
	if err != nil {
		t.Fatalf("NewParserFromReader: %v", err)
	}
	if _, err := p.Next(); err == nil {
		t.Fatal("expected parse error for truncated record")
	}
}
