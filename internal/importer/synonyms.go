package importer

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Semantic field names shared by all import jobs.
const (
	FieldCode     = "code"
	FieldLabel    = "label"
	FieldDistrict = "district"
	FieldTaxID    = "taxId"
	FieldAddress  = "address"
	FieldCity     = "city"
	FieldCategory = "category"
	FieldBarcode  = "barcode"
)

//go:embed synonyms.yaml
var defaultSynonymsYAML []byte

// SynonymTable maps a semantic field to the header spellings accepted for it.
// It is read-only once built.
type SynonymTable struct {
	fields []string
	lookup map[string]string // normalized spelling -> field
	raw    map[string][]string
}

// NewSynonymTable builds a table and rejects spellings that normalize to the
// same key under two different fields.
func NewSynonymTable(synonyms map[string][]string) (*SynonymTable, error) {
	t := &SynonymTable{
		lookup: make(map[string]string),
		raw:    make(map[string][]string, len(synonyms)),
	}

	for field := range synonyms {
		t.fields = append(t.fields, field)
	}
	sort.Strings(t.fields)

	var conflicts []string
	for _, field := range t.fields {
		spellings := synonyms[field]
		if len(spellings) == 0 {
			return nil, fmt.Errorf("field %q has no header synonyms", field)
		}
		t.raw[field] = append([]string(nil), spellings...)
		for _, s := range spellings {
			key := Normalize(s)
			if key == "" {
				return nil, fmt.Errorf("field %q has a synonym that normalizes to empty: %q", field, s)
			}
			if owner, ok := t.lookup[key]; ok && owner != field {
				conflicts = append(conflicts, fmt.Sprintf("%q (%s, %s)", s, owner, field))
				continue
			}
			t.lookup[key] = field
		}
	}

	if len(conflicts) > 0 {
		return nil, fmt.Errorf("ambiguous header synonyms: %s", strings.Join(conflicts, "; "))
	}
	return t, nil
}

// DefaultSynonyms returns the built-in table shipped with the binary.
func DefaultSynonyms() (*SynonymTable, error) {
	return ParseSynonymsYAML(defaultSynonymsYAML)
}

// ParseSynonymsYAML reads a `field: [spelling, ...]` document.
func ParseSynonymsYAML(data []byte) (*SynonymTable, error) {
	var synonyms map[string][]string
	if err := yaml.Unmarshal(data, &synonyms); err != nil {
		return nil, fmt.Errorf("failed to parse synonyms: %w", err)
	}
	return NewSynonymTable(synonyms)
}

// LoadSynonyms reads the table from path, or the built-in one when path is empty.
func LoadSynonyms(path string) (*SynonymTable, error) {
	if path == "" {
		return DefaultSynonyms()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonyms file: %w", err)
	}
	return ParseSynonymsYAML(data)
}

// Fields lists the semantic fields in stable order.
func (t *SynonymTable) Fields() []string {
	return append([]string(nil), t.fields...)
}

// Synonyms returns the configured spellings for a field.
func (t *SynonymTable) Synonyms(field string) []string {
	return append([]string(nil), t.raw[field]...)
}

// MatchHeader resolves a raw header cell to a field name.
func (t *SynonymTable) MatchHeader(header string) (string, bool) {
	key := Normalize(header)
	if key == "" {
		return "", false
	}
	field, ok := t.lookup[key]
	return field, ok
}

// Normalize lower-cases s, folds accents and drops separator characters
// (whitespace, '_', '-', '.').
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '-' || r == '.' || r == '\ufeff' {
			return -1
		}
		return r
	}, folded)
}
