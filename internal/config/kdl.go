package config

import (
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/leindex/leindex/internal/errors"
)

// LoadKDL loads .leindex.kdl from projectRoot, overlaying recognized keys
// onto Default(projectRoot). It returns the defaults unchanged (not an
// error) if no .leindex.kdl file exists. Unknown keys at any nesting level
// are rejected per spec §9's redesign note.
func LoadKDL(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".leindex.kdl")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(projectRoot), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.Internal, "config.read_failed", "failed to read .leindex.kdl", err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, errors.Wrap(errors.InvalidInput, "config.parse_failed", "failed to parse .leindex.kdl", err).
			WithRemediation("check .leindex.kdl for syntax errors")
	}

	cfg := Default(projectRoot)
	for _, n := range doc.Nodes {
		if err := applyTopLevel(cfg, n); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func applyTopLevel(cfg *Config, n *document.Node) error {
	switch nodeName(n) {
	case "project":
		return applyChildren(n, map[string]func(*document.Node) error{
			"root": assignString(func(v string) { cfg.Project.Root = resolveRoot(cfg.Project.Root, v) }),
			"name": assignString(func(v string) { cfg.Project.Name = v }),
		})
	case "index":
		return applyChildren(n, map[string]func(*document.Node) error{
			"max_file_size":     assignInt(func(v int) { cfg.Index.MaxFileSize = int64(v) }),
			"max_total_size_mb": assignInt(func(v int) { cfg.Index.MaxTotalSizeMB = int64(v) }),
			"max_file_count":    assignInt(func(v int) { cfg.Index.MaxFileCount = v }),
			"follow_symlinks":   assignBool(func(v bool) { cfg.Index.FollowSymlinks = v }),
			"debounce_ms":       assignInt(func(v int) { cfg.Index.DebounceMs = v }),
			"include":           func(cn *document.Node) error { cfg.Index.Include = collectStringArgs(cn); return nil },
			"exclude":           func(cn *document.Node) error { cfg.Index.Exclude = collectStringArgs(cn); return nil },
		})
	case "search":
		return applyChildren(n, map[string]func(*document.Node) error{
			"max_results":       assignInt(func(v int) { cfg.Search.MaxResults = v }),
			"max_query_length":  assignInt(func(v int) { cfg.Search.MaxQueryLength = v }),
			"enable_fuzzy":      assignBool(func(v bool) { cfg.Search.EnableFuzzy = v }),
			"fuzzy_threshold":   assignFloat(func(v float64) { cfg.Search.FuzzyThreshold = v }),
			"semantic_weight":   assignFloat(func(v float64) { cfg.Search.SemanticWeight = v }),
			"structural_weight": assignFloat(func(v float64) { cfg.Search.StructuralWeight = v }),
			"text_weight":       assignFloat(func(v float64) { cfg.Search.TextWeight = v }),
		})
	case "memory":
		return applyChildren(n, map[string]func(*document.Node) error{
			"budget_mb":          assignInt(func(v int) { cfg.Memory.BudgetMB = v }),
			"poll_interval_ms":   assignInt(func(v int) { cfg.Memory.PollIntervalMs = v }),
			"warning_fraction":   assignFloat(func(v float64) { cfg.Memory.WarningFraction = v }),
			"prompt_fraction":    assignFloat(func(v float64) { cfg.Memory.PromptFraction = v }),
			"emergency_fraction": assignFloat(func(v float64) { cfg.Memory.EmergencyFraction = v }),
		})
	case "storage":
		return applyChildren(n, map[string]func(*document.Node) error{
			"data_dir":                assignString(func(v string) { cfg.Storage.DataDir = v }),
			"max_analysis_cache_rows": assignInt(func(v int) { cfg.Storage.MaxAnalysisCacheRows = v }),
		})
	default:
		return unknownKeyErr(nodeName(n))
	}
}

func applyChildren(n *document.Node, handlers map[string]func(*document.Node) error) error {
	for _, cn := range n.Children {
		name := nodeName(cn)
		h, ok := handlers[name]
		if !ok {
			return unknownKeyErr(name)
		}
		if err := h(cn); err != nil {
			return err
		}
	}
	return nil
}

func unknownKeyErr(key string) error {
	return errors.New(errors.InvalidInput, "config.unknown_key", "unrecognized configuration key: "+key).
		WithRemediation("remove or correct the key in .leindex.kdl")
}

func resolveRoot(fallback, v string) string {
	if v == "" {
		return fallback
	}
	if filepath.IsAbs(v) {
		return filepath.Clean(v)
	}
	return filepath.Clean(filepath.Join(fallback, v))
}

func assignString(set func(string)) func(*document.Node) error {
	return func(n *document.Node) error {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
		return nil
	}
}

func assignInt(set func(int)) func(*document.Node) error {
	return func(n *document.Node) error {
		if v, ok := firstIntArg(n); ok {
			set(v)
		}
		return nil
	}
}

func assignBool(set func(bool)) func(*document.Node) error {
	return func(n *document.Node) error {
		if b, ok := firstBoolArg(n); ok {
			set(b)
		}
		return nil
	}
}

func assignFloat(set func(float64)) func(*document.Node) error {
	return func(n *document.Node) error {
		if v, ok := firstFloatArg(n); ok {
			set(v)
		}
		return nil
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
