package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Writer renders section results as an aligned text table. Color-coded
// rendering is a caller concern; this output is plain.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a result writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the column header line.
func (w *Writer) WriteHeader() error {
	_, err := fmt.Fprintf(w.w, "%-12s %-15s %-8s %s\n\n", "RSID", "Genotype", "Status", "Interpretation")
	return err
}

// WriteSection writes a section banner followed by its result rows.
func (w *Writer) WriteSection(sr SectionResult) error {
	banner := fmt.Sprintf(" %s ", title(sr.Name))
	pad := 60 - len(banner)
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	if _, err := fmt.Fprintf(w.w, "\n%s%s%s\n\n",
		strings.Repeat("=", left), banner, strings.Repeat("=", pad-left)); err != nil {
		return err
	}

	for _, r := range sr.Results {
		if _, err := fmt.Fprintf(w.w, "%-12s %-15s %-8s %s\n",
			r.RSID, r.Genotype, r.Status, r.Interpretation); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
