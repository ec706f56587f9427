// Package config loads LeIndex's single configuration struct from
// .leindex.kdl (primary) or .leindex.toml (fallback), per spec §9's
// "one configuration struct, unknown keys rejected at load time" redesign
// note.
package config

// Config is the single recognized configuration shape. Every loader
// (KDL, TOML, or the built-in defaults) produces exactly this struct;
// nothing downstream ever touches a map[string]any configuration bag.
type Config struct {
	Project ProjectConfig
	Index   IndexConfig
	Search  SearchConfig
	Memory  MemoryConfig
	Storage StorageConfig
}

// ProjectConfig names the root being indexed.
type ProjectConfig struct {
	Root string
	Name string
}

// IndexConfig bounds what the orchestrator's file walker will touch.
type IndexConfig struct {
	MaxFileSize    int64
	MaxTotalSizeMB int64
	MaxFileCount   int
	FollowSymlinks bool
	Include        []string
	Exclude        []string
	DebounceMs     int
}

// SearchConfig configures the fusion engine's defaults.
type SearchConfig struct {
	MaxResults        int
	MaxQueryLength    int
	EnableFuzzy       bool
	FuzzyThreshold    float64
	SemanticWeight    float64
	StructuralWeight  float64
	TextWeight        float64
}

// MemoryConfig configures the orchestrator's memory governor, per spec
// §4.5's warning(~80%)/prompt(~93%)/emergency(~98%) thresholds.
type MemoryConfig struct {
	BudgetMB          int
	PollIntervalMs    int
	WarningFraction   float64
	PromptFraction    float64
	EmergencyFraction float64
}

// StorageConfig configures the sqlite-backed store.
type StorageConfig struct {
	DataDir            string
	MaxAnalysisCacheRows int
}

// Default returns the built-in defaults every loader starts from before
// applying file overrides.
func Default(projectRoot string) *Config {
	return &Config{
		Project: ProjectConfig{Root: projectRoot},
		Index: IndexConfig{
			MaxFileSize:    10 * 1024 * 1024,
			MaxTotalSizeMB: 500,
			MaxFileCount:   10000,
			FollowSymlinks: false,
			DebounceMs:     200,
		},
		Search: SearchConfig{
			MaxResults:       100,
			MaxQueryLength:   1024,
			EnableFuzzy:      true,
			FuzzyThreshold:   0.8,
			SemanticWeight:   0.5,
			StructuralWeight: 0.3,
			TextWeight:       0.2,
		},
		Memory: MemoryConfig{
			BudgetMB:          2048,
			PollIntervalMs:    30000,
			WarningFraction:   0.80,
			PromptFraction:    0.93,
			EmergencyFraction: 0.98,
		},
		Storage: StorageConfig{
			DataDir:              ".leindex",
			MaxAnalysisCacheRows: 50000,
		},
	}
}
