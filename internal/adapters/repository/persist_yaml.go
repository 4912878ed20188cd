package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlRecord is the per-name value of the YAML document:
//
//	Steve:
//	  speed_ms: 8.0
//	  unit_id: kmh
//
// Names without speed_ms are not entries and are skipped on load.
type yamlRecord struct {
	SpeedMS *float64 `yaml:"speed_ms"`
	UnitID  string  `yaml:"unit_id"`
}

// YAMLPersister keeps the leaderboard as one YAML document keyed by name.
// Every save rewrites the document through a temp file and rename.
type YAMLPersister struct {
	path string
}

// NewYAMLPersister creates a persister for path. The file is created on
// first save.
func NewYAMLPersister(path string) *YAMLPersister {
	return &YAMLPersister{path: path}
}

// Load implements Persister.
func (p *YAMLPersister) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	doc := make(map[string]yamlRecord)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.path, err)
	}
	out := make([]Entry, 0, len(doc))
	for name, r := range doc {
		if r.SpeedMS == nil {
			continue
		}
		out = append(out, Entry{Name: name, SpeedMS: *r.SpeedMS, UnitID: r.UnitID})
	}
	return out, nil
}

// Save implements Persister.
func (p *YAMLPersister) Save(_ context.Context, _ Entry, all []Entry) error {
	doc := make(map[string]yamlRecord, len(all))
	for _, e := range all {
		speed := e.SpeedMS
		doc[e.Name] = yamlRecord{SpeedMS: &speed, UnitID: e.UnitID}
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("rename to %s: %w", p.path, err)
	}
	return nil
}

// Close implements Persister.
func (p *YAMLPersister) Close() error { return nil }
