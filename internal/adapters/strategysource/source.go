// Package strategysource loads strategy definitions from a YAML file.
package strategysource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/courtside/internal/domain/model"
)

// ErrNoStrategies is returned when a file parses but defines nothing.
var ErrNoStrategies = errors.New("strategysource: no strategies defined")

// document is the top-level shape of a strategies file.
type document struct {
	Strategies []any `yaml:"strategies"`
}

// File reads strategies from a YAML file on every Load.
type File struct {
	path string
}

// NewFile creates a File source for path.
func NewFile(path string) *File { return &File{path: path} }

// Name identifies the source in logs.
func (f *File) Name() string { return "file:" + f.path }

// Load implements the app's strategy source contract.
func (f *File) Load(_ context.Context) ([]*model.Strategy, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("strategysource: read %s: %w", f.path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML strategies document. Each entry is re-encoded as JSON
// so the YAML form shares the model's JSON field names and value handling.
// Entries that fail validation are an error for the whole document.
func Parse(data []byte) ([]*model.Strategy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("strategysource: parse yaml: %w", err)
	}
	if len(doc.Strategies) == 0 {
		return nil, ErrNoStrategies
	}

	out := make([]*model.Strategy, 0, len(doc.Strategies))
	seen := make(map[string]bool, len(doc.Strategies))
	for i, raw := range doc.Strategies {
		js, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("strategysource: entry %d: %w", i, err)
		}
		var s model.Strategy
		if err := json.Unmarshal(js, &s); err != nil {
			return nil, fmt.Errorf("strategysource: entry %d: %w", i, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("strategysource: entry %d: %w", i, err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("strategysource: duplicate strategy id %q", s.ID)
		}
		seen[s.ID] = true
		out = append(out, &s)
	}
	return out, nil
}
