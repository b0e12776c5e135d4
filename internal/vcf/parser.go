package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser reads records from a plain or gzip-compressed VCF file.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	lineNumber  int
	header      []string
	sampleNames []string
}

// NewParser opens path for reading. Gzip input is detected by magic bytes
// rather than extension, so bgzip-compressed call sets work too.
func NewParser(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf: %w", err)
	}

	p := &Parser{file: file}

	magic := make([]byte, 2)
	if _, err := io.ReadFull(file, magic); err != nil {
		file.Close()
		return nil, fmt.Errorf("read vcf: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf: %w", err)
	}

	if magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open gzip vcf: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader wraps an already-open stream.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read vcf header: %w", err)
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}
		return &ParseError{Line: p.lineNumber, Message: "expected #CHROM header line"}
	}
	return &ParseError{Line: p.lineNumber, Message: "no #CHROM header line found"}
}

// Next returns the next record, or nil at end of input.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if line == "" {
					return nil, nil
				}
				// Final line without trailing newline.
			} else {
				return nil, fmt.Errorf("read vcf record: %w", err)
			}
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}
		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position %q", fields[1]),
		}
	}

	qual := 0.0
	if fields[5] != "." {
		qual, _ = strconv.ParseFloat(fields[5], 64)
	}

	rec := &Record{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   qual,
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
	}

	if len(fields) > 8 {
		rec.Format = fields[8]
	}
	if len(fields) > 9 {
		rec.Samples = fields[9:]
	}
	return rec, nil
}

func parseInfo(info string) map[string]string {
	result := make(map[string]string)
	if info == "." {
		return result
	}
	for _, kv := range strings.Split(info, ";") {
		if key, val, ok := strings.Cut(kv, "="); ok {
			result[key] = val
		} else {
			result[kv] = ""
		}
	}
	return result
}

// Header returns the raw header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns the sample names from the #CHROM line.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// Close releases the underlying file handles.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError is a VCF syntax error with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
