package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	StoreDir    = "dir"
	StoreSQLite = "sqlite"
)

// Profile is an audit profile: the knobs a team pins for repeated
// comparisons of the same pipeline.
type Profile struct {
	CoercibleFields []string `yaml:"coercible_fields"`
	Catalog         string   `yaml:"catalog"`
	Workers         int      `yaml:"workers"`
	Store           string   `yaml:"store"`
	DB              string   `yaml:"db"`
}

// LoadProfile reads a YAML profile. An empty path yields the zero profile.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return p, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p Profile) validate() error {
	switch p.Store {
	case "", StoreDir, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q", p.Store)
	}
	if p.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	return nil
}

// Apply overlays the non-zero profile settings on r.
func (p Profile) Apply(r Runtime) Runtime {
	if p.Workers > 0 {
		r.Workers = p.Workers
	}
	if p.Store != "" {
		r.Store = p.Store
	}
	if p.DB != "" {
		r.DB = p.DB
	}
	return r
}
