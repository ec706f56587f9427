package config

import (
	"github.com/leindex/leindex/internal/errors"
)

// Validator checks a loaded Config's value ranges and fills in any
// zero-valued field a loader left untouched with Default's value, the
// same "validate then set smart defaults" shape the teacher's config
// validator uses.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults rejects out-of-range values and backfills
// zero-valued fields.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	defaults := Default(cfg.Project.Root)

	if cfg.Project.Root == "" {
		return errors.New(errors.InvalidInput, "config.project_root_required", "project root cannot be empty")
	}

	if cfg.Index.MaxFileSize <= 0 {
		cfg.Index.MaxFileSize = defaults.Index.MaxFileSize
	}
	if cfg.Index.MaxFileCount <= 0 {
		cfg.Index.MaxFileCount = defaults.Index.MaxFileCount
	}
	if cfg.Index.DebounceMs <= 0 {
		cfg.Index.DebounceMs = defaults.Index.DebounceMs
	}

	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = defaults.Search.MaxResults
	}
	if cfg.Search.MaxQueryLength <= 0 {
		cfg.Search.MaxQueryLength = defaults.Search.MaxQueryLength
	}
	if cfg.Search.SemanticWeight+cfg.Search.StructuralWeight+cfg.Search.TextWeight <= 0 {
		return errors.New(errors.InvalidInput, "config.search_weights_invalid", "search weights must sum to a positive value")
	}

	if cfg.Memory.BudgetMB < 128 {
		return errors.New(errors.InvalidInput, "config.memory_budget_too_low", "memory budget must be at least 128 MB").
			WithRemediation("raise memory.budget_mb in the configuration file")
	}
	if !(0 < cfg.Memory.WarningFraction && cfg.Memory.WarningFraction < cfg.Memory.PromptFraction &&
		cfg.Memory.PromptFraction < cfg.Memory.EmergencyFraction && cfg.Memory.EmergencyFraction <= 1.0) {
		return errors.New(errors.InvalidInput, "config.memory_thresholds_invalid",
			"memory thresholds must satisfy 0 < warning < prompt < emergency <= 1.0")
	}
	if cfg.Memory.PollIntervalMs <= 0 {
		cfg.Memory.PollIntervalMs = defaults.Memory.PollIntervalMs
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaults.Storage.DataDir
	}
	if cfg.Storage.MaxAnalysisCacheRows <= 0 {
		cfg.Storage.MaxAnalysisCacheRows = defaults.Storage.MaxAnalysisCacheRows
	}

	return nil
}
