// Package catalog loads the curated SNP reference catalog.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/genomekit/genomekit/internal/genotype"
)

// Entry is one curated SNP with its reference genotypes.
type Entry struct {
	RSID        string `json:"rs_id"`
	Position    string `json:"position"`
	ProtectiveS string `json:"ref_genotype"`
	RiskS       string `json:"alt_genotype"`
	Description string `json:"description"`

	// Parsed forms, populated at load time.
	Protective genotype.Genotype `json:"-"`
	Risk       genotype.Genotype `json:"-"`
}

// Section is a named ordered group of catalog entries. Entry order is the
// required output order.
type Section struct {
	Name    string
	Entries []Entry
}

// Catalog is the loaded SNP reference catalog. It is immutable after Load.
type Catalog struct {
	sections []Section
	byName   map[string]int
}

// SectionNames returns the section names in declaration order.
func (c *Catalog) SectionNames() []string {
	names := make([]string, len(c.sections))
	for i, s := range c.sections {
		names[i] = s.Name
	}
	return names
}

// Section returns the named section.
func (c *Catalog) Section(name string) (Section, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Section{}, false
	}
	return c.sections[i], true
}

// Has reports whether the named section exists.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Load reads the catalog JSON file. The file holds a "categories" object
// mapping section names to entry lists; section order in the file is
// preserved, which is why decoding walks tokens instead of unmarshaling
// into a map. Any parse or validation failure is fatal to the run: there
// is no meaningful partial catalog.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snp catalog: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("parse snp catalog: %w", err)
	}

	cat := &Catalog{byName: make(map[string]int)}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse snp catalog: %w", err)
		}
		key, _ := keyTok.(string)

		if key != "categories" {
			// Skip unrecognized top-level values (e.g. catalog metadata).
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("parse snp catalog: %w", err)
			}
			continue
		}

		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("parse snp catalog: %w", err)
		}
		for dec.More() {
			nameTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parse snp catalog: %w", err)
			}
			name, _ := nameTok.(string)

			var entries []Entry
			if err := dec.Decode(&entries); err != nil {
				return nil, fmt.Errorf("parse snp catalog section %q: %w", name, err)
			}
			for i := range entries {
				if err := validateEntry(&entries[i]); err != nil {
					return nil, fmt.Errorf("snp catalog section %q: %w", name, err)
				}
			}

			cat.byName[name] = len(cat.sections)
			cat.sections = append(cat.sections, Section{Name: name, Entries: entries})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fmt.Errorf("parse snp catalog: %w", err)
		}
	}

	if len(cat.sections) == 0 {
		return nil, fmt.Errorf("snp catalog %s: no categories defined", path)
	}
	return cat, nil
}

// validateEntry parses the reference genotypes, enforcing the invariant
// that both are valid two-allele genotypes.
func validateEntry(e *Entry) error {
	var err error
	if e.Protective, err = genotype.ParseRaw(e.ProtectiveS); err != nil {
		return fmt.Errorf("entry %s: protective genotype: %w", e.RSID, err)
	}
	if e.Risk, err = genotype.ParseRaw(e.RiskS); err != nil {
		return fmt.Errorf("entry %s: risk genotype: %w", e.RSID, err)
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, found %v", want, tok)
	}
	return nil
}
