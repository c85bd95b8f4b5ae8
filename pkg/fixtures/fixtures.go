// Package fixtures loads seed records from YAML or JSON files.
//
// A fixture file maps resource names to lists of records:
//
//	post:
//	  - id: 8
//	    age: 33
//	    author: Adam
package fixtures

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/datastore/pkg/core"
)

// Set holds the records of a fixture file, by resource.
type Set map[string][]core.Attributes

// Resources returns the resource names of the set, sorted.
func (s Set) Resources() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Format names a fixture encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	default:
		return "", fmt.Errorf("unsupported fixture extension %q", filepath.Ext(path))
	}
}

// Load reads and parses the fixture file at path.
func Load(path string) (Set, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse decodes a fixture document.
func Parse(r io.Reader, format Format) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Set{}, nil
	}

	var raw map[string][]map[string]any
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml fixtures: %w", err)
		}
	case JSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json fixtures: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported fixture format %q", format)
	}

	set := make(Set, len(raw))
	for name, rows := range raw {
		list := make([]core.Attributes, 0, len(rows))
		for i, row := range rows {
			if row == nil {
				return nil, fmt.Errorf("%s[%d]: record must be an object", name, i)
			}
			list = append(list, core.Attributes(row))
		}
		set[name] = list
	}
	return set, nil
}

// Seeder receives fixture rows, e.g. the memory adapter.
type Seeder interface {
	Seed(resource, idAttribute string, rows ...core.Attributes) error
}

// Apply injects every record of set into ds. Resources must be registered.
// When backend is non-nil it is seeded with the same rows first.
func Apply(ctx context.Context, ds *core.DataStore, backend Seeder, set Set) (int, error) {
	n := 0
	for _, name := range set.Resources() {
		def, ok := ds.Definition(name)
		if !ok {
			return n, fmt.Errorf("fixtures: %s is not a registered resource", name)
		}
		rows := set[name]
		if backend != nil {
			if err := backend.Seed(name, def.IDAttribute, rows...); err != nil {
				return n, err
			}
		}
		recs, err := ds.InjectAll(ctx, name, rows)
		if err != nil {
			return n, fmt.Errorf("fixtures: %s: %w", name, err)
		}
		n += len(recs)
	}
	return n, nil
}
