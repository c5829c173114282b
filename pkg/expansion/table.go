package expansion

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-chainviz/pkg/validation"
)

// Entry binds an expansion key to the subgraph it loads and the address
// that triggers it.
type Entry struct {
	Key     string `yaml:"key" json:"key" validate:"required"`
	Source  string `yaml:"source" json:"source" validate:"required"`
	Address string `yaml:"address" json:"address" validate:"required"`
}

type tableFile struct {
	Seed string  `yaml:"seed"`
	Keys []Entry `yaml:"keys" validate:"required,min=1,dive"`
}

// Table is an ordered, immutable key table. Lookups scan in order and the
// first match wins. Swap a whole Table to reconfigure.
type Table struct {
	entries []Entry
	seed    string
}

// NewTable validates entries and builds a table. The seed key defaults to
// the first entry.
func NewTable(seed string, entries []Entry) (*Table, error) {
	if err := validation.Struct(&tableFile{Seed: seed, Keys: entries}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidTable, e.Key)
		}
		seen[e.Key] = true
	}
	if seed == "" {
		seed = entries[0].Key
	}
	if !seen[seed] {
		return nil, fmt.Errorf("%w: seed key %q not in table", ErrInvalidTable, seed)
	}

	t := &Table{seed: seed, entries: make([]Entry, len(entries))}
	copy(t.entries, entries)
	return t, nil
}

// DefaultTable is the three-key table the bundled sample data uses
func DefaultTable() *Table {
	t, err := NewTable("one", []Entry{
		{Key: "one", Source: "JSON/1.json", Address: "0x2be59e62d811a1a8a25a937c4812313cf8bbe428"},
		{Key: "two", Source: "JSON/2.json", Address: "0xf3ecf43e3882b19d91646a4852145f8d2317fba2"},
		{Key: "three", Source: "JSON/3.json", Address: "0x6a2b402b710c746de3fc064090ca1eab109a0e31"},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTable decodes a YAML key table:
//
//	seed: one
//	keys:
//	  - {key: one, source: JSON/1.json, address: "0x2be5..."}
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return NewTable(f.Seed, f.Keys)
}

// LoadTable reads and parses a key table file
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// KeyFor returns the first key whose trigger address equals address
func (t *Table) KeyFor(address string) (string, bool) {
	for _, e := range t.entries {
		if e.Address == address {
			return e.Key, true
		}
	}
	return "", false
}

// Lookup returns the entry for key
func (t *Table) Lookup(key string) (Entry, bool) {
	for _, e := range t.entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Request builds a load request for key
func (t *Table) Request(key string) (Request, error) {
	e, ok := t.Lookup(key)
	if !ok {
		return Request{}, &LoadError{Key: key, Cause: ErrUnknownKey}
	}
	return NewRequest(e.Key, e.Source), nil
}

// Seed is the key loaded when a session starts
func (t *Table) Seed() string {
	return t.seed
}

// Entries returns a copy of the table in lookup order
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Table) Len() int {
	return len(t.entries)
}

// IsTableError reports whether err came from table validation
func IsTableError(err error) bool {
	return errors.Is(err, ErrInvalidTable)
}
