package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// DefaultTableCount and DefaultTableCapacity describe the roster used when
// no TABLES_FILE is configured: ten tables seating five each.
const (
	DefaultTableCount    = 10
	DefaultTableCapacity = 5
)

// rosterFile is the on-disk shape of TABLES_FILE:
//
//   tables:
//     - id: 1
//       capacity: 4
//       label: window
type rosterFile struct {
	Tables []model.Table `yaml:"tables"`
}

// DefaultTables returns the built-in roster.
func DefaultTables() []model.Table {
	out := make([]model.Table, 0, DefaultTableCount)
	for i := 1; i <= DefaultTableCount; i++ {
		out = append(out, model.Table{
			ID:       uint64(i),
			Capacity: DefaultTableCapacity,
			Label:    fmt.Sprintf("Table %d", i),
		})
	}
	return out
}

// LoadTables reads the roster from path, or returns DefaultTables when path
// is empty.
func LoadTables(path string) ([]model.Table, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	tables, err := ParseTables(f)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return tables, nil
}

// ParseTables decodes a YAML roster and checks it is usable.
func ParseTables(r io.Reader) ([]model.Table, error) {
	var doc rosterFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no tables defined")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("no tables defined")
	}
	seen := make(map[uint64]bool, len(doc.Tables))
	for i, t := range doc.Tables {
		if t.ID == 0 {
			return nil, fmt.Errorf("tables[%d]: id must be positive", i)
		}
		if t.Capacity < 1 {
			return nil, fmt.Errorf("table %d: capacity must be at least 1", t.ID)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("table %d: duplicate id", t.ID)
		}
		seen[t.ID] = true
		if t.Label == "" {
			doc.Tables[i].Label = fmt.Sprintf("Table %d", t.ID)
		}
	}
	return doc.Tables, nil
}
