package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/leindex/leindex/internal/errors"
)

// tomlDoc mirrors Config's recognized keys one-to-one so go-toml's
// DisallowUnknownFields rejects anything this package doesn't know about,
// per spec §9.
type tomlDoc struct {
	Project *ProjectConfig `toml:"project"`
	Index   *IndexConfig   `toml:"index"`
	Search  *SearchConfig  `toml:"search"`
	Memory  *MemoryConfig  `toml:"memory"`
	Storage *StorageConfig `toml:"storage"`
}

// LoadTOML loads .leindex.toml from projectRoot as the fallback format for
// environments that prefer TOML over KDL. It returns the defaults
// unchanged if no .leindex.toml file exists.
func LoadTOML(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".leindex.toml")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(projectRoot), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "config.read_failed", "failed to read .leindex.toml", err)
	}

	var doc tomlDoc
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.InvalidInput, "config.parse_failed", "failed to parse .leindex.toml", err).
			WithRemediation("remove unrecognized keys from .leindex.toml")
	}

	cfg := Default(projectRoot)
	if doc.Project != nil {
		cfg.Project = *doc.Project
		if cfg.Project.Root == "" {
			cfg.Project.Root = projectRoot
		}
	}
	if doc.Index != nil {
		cfg.Index = *doc.Index
	}
	if doc.Search != nil {
		cfg.Search = *doc.Search
	}
	if doc.Memory != nil {
		cfg.Memory = *doc.Memory
	}
	if doc.Storage != nil {
		cfg.Storage = *doc.Storage
	}
	return cfg, nil
}

// Load tries .leindex.kdl first (the primary format), falling back to
// .leindex.toml, then built-in defaults, per spec §6's config collaborator.
func Load(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".leindex.kdl")
	if _, err := os.Stat(kdlPath); err == nil {
		cfg, err := LoadKDL(projectRoot)
		if err != nil {
			return nil, err
		}
		return cfg, NewValidator().ValidateAndSetDefaults(cfg)
	}

	tomlPath := filepath.Join(projectRoot, ".leindex.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		cfg, err := LoadTOML(projectRoot)
		if err != nil {
			return nil, err
		}
		return cfg, NewValidator().ValidateAndSetDefaults(cfg)
	}

	cfg := Default(projectRoot)
	return cfg, NewValidator().ValidateAndSetDefaults(cfg)
}
