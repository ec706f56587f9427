// Command leindex is the CLI surface over internal/orchestrator: one verb
// per spec §6 op, each doing nothing but parse flags into the op's
// orchestrator request fields, call the matching Orchestrator method
// directly, and print its JSON result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/leindex/leindex/internal/config"
	"github.com/leindex/leindex/internal/errors"
	"github.com/leindex/leindex/internal/orchestrator"
	"github.com/leindex/leindex/internal/rpc"
	"github.com/leindex/leindex/internal/version"
)

// exitCode maps an op's error category onto spec §6's exit code table:
// 0 success, 1 user error, 2 internal error, 3 Unavailable/retriable.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch errors.CategoryOf(err) {
	case errors.InvalidInput, errors.NotFound, errors.Unsupported:
		return 1
	case errors.Unavailable, errors.Timeout:
		return 3
	default:
		return 2
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadOrchestrator(c *cli.Context, root string) (*orchestrator.Orchestrator, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidInput, "cli.bad_root", "could not resolve project root", err)
	}
	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(cfg)
}

func runOp(c *cli.Context, root string, fn func(ctx context.Context, orch *orchestrator.Orchestrator) (any, error)) error {
	orch, err := loadOrchestrator(c, root)
	if err != nil {
		return cli.Exit(err.Error(), exitCode(err))
	}
	defer orch.Close()

	result, err := fn(c.Context, orch)
	if err != nil {
		return cli.Exit(err.Error(), exitCode(err))
	}
	if err := printJSON(result); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:    "leindex",
		Usage:   "local embeddable code intelligence engine",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root directory (defaults to the current directory)",
				Value:   ".",
			},
		},
		Commands: []*cli.Command{
			indexCommand,
			searchCommand,
			analyzeCommand,
			contextCommand,
			phaseCommand,
			diagnosticsCommand,
			serveCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "leindex: %v\n", err)
		if exitErr, ok := err.(cli.ExitCoder); ok {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var indexCommand = &cli.Command{
	Name:  "index",
	Usage: "index (or re-index) the project root",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Usage: "reprocess every file regardless of content hash"},
	},
	Action: func(c *cli.Context) error {
		root := c.String("root")
		force := c.Bool("force")
		return runOp(c, root, func(ctx context.Context, orch *orchestrator.Orchestrator) (any, error) {
			return orch.Index(ctx, root, force)
		})
	},
}

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "search an already-indexed project",
	ArgsUsage: "<query>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "project-id", Required: true, Usage: "project id returned by a prior index run"},
		&cli.StringFlag{Name: "mode", Value: "hybrid", Usage: "hybrid, lexical, or vector"},
		&cli.IntFlag{Name: "limit", Value: 10},
		&cli.StringFlag{Name: "language"},
		&cli.StringFlag{Name: "kind"},
		&cli.StringSliceFlag{Name: "include", Usage: "glob a hit's file path must match"},
		&cli.StringSliceFlag{Name: "exclude", Usage: "glob a hit's file path must not match"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("usage: leindex search <query> --project-id <id>", 1)
		}
		root := c.String("root")
		req := orchestrator.SearchRequest{
			Query:     c.Args().First(),
			ProjectID: c.String("project-id"),
			Mode:      orchestrator.SearchMode(c.String("mode")),
			Limit:     c.Int("limit"),
			Filters: orchestrator.SearchFilters{
				Language:        c.String("language"),
				Kind:            c.String("kind"),
				FilePatterns:    c.StringSlice("include"),
				ExcludePatterns: c.StringSlice("exclude"),
			},
		}
		return runOp(c, root, func(ctx context.Context, orch *orchestrator.Orchestrator) (any, error) {
			return orch.Search(ctx, req)
		})
	},
}

var analyzeCommand = &cli.Command{
	Name:  "analyze",
	Usage: "build a token-budgeted analysis bundle",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "project-id", Required: true},
		&cli.StringFlag{Name: "file"},
		&cli.StringFlag{Name: "symbol"},
		&cli.StringFlag{Name: "query"},
		&cli.IntFlag{Name: "budget-tokens", Value: 2000},
	},
	Action: func(c *cli.Context) error {
		root := c.String("root")
		req := orchestrator.AnalyzeRequest{
			ProjectID:    c.String("project-id"),
			FilePath:     c.String("file"),
			SymbolName:   c.String("symbol"),
			Query:        c.String("query"),
			BudgetTokens: c.Int("budget-tokens"),
		}
		return runOp(c, root, func(ctx context.Context, orch *orchestrator.Orchestrator) (any, error) {
			return orch.Analyze(ctx, req)
		})
	},
}

var contextCommand = &cli.Command{
	Name:      "context",
	Usage:     "show a source window and its surrounding symbols",
	ArgsUsage: "<file> <line>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "project-id", Required: true},
		&cli.IntFlag{Name: "context-lines", Value: 10},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return cli.Exit("usage: leindex context <file> <line> --project-id <id>", 1)
		}
		root := c.String("root")
		filePath := c.Args().Get(0)
		var line int
		if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &line); err != nil {
			return cli.Exit("line must be a number", 1)
		}
		projectID := c.String("project-id")
		contextLines := c.Int("context-lines")
		return runOp(c, root, func(ctx context.Context, orch *orchestrator.Orchestrator) (any, error) {
			return orch.Context(ctx, projectID, filePath, line, contextLines)
		})
	},
}

var phaseCommand = &cli.Command{
	Name:      "phase",
	Usage:     "run the indexing pipeline (stage 1 alone, or the full pipeline for 2-5/all), for debugging",
	ArgsUsage: "<1-5|all>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force"},
	},
	Action: func(c *cli.Context) error {
		phase := "all"
		if c.NArg() > 0 {
			phase = c.Args().First()
		}
		root := c.String("root")
		force := c.Bool("force")
		return runOp(c, root, func(ctx context.Context, orch *orchestrator.Orchestrator) (any, error) {
			return orch.Phase(ctx, orchestrator.PhaseRequest{ProjectPath: root, Phase: phase, Force: force})
		})
	},
}

var diagnosticsCommand = &cli.Command{
	Name:  "diagnostics",
	Usage: "report server version, memory usage, and per-project index stats",
	Action: func(c *cli.Context) error {
		root := c.String("root")
		return runOp(c, root, func(ctx context.Context, orch *orchestrator.Orchestrator) (any, error) {
			return orch.Diagnostics(ctx)
		})
	},
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the stdio JSON-RPC server",
	Action: func(c *cli.Context) error {
		root := c.String("root")
		orch, err := loadOrchestrator(c, root)
		if err != nil {
			return cli.Exit(err.Error(), exitCode(err))
		}
		defer orch.Close()
		orch.StartMemGovernor()
		if _, err := orch.StartWatcher(root); err != nil {
			return cli.Exit(err.Error(), exitCode(err))
		}

		server := rpc.NewServer(orch)
		if err := server.Run(c.Context); err != nil {
			return cli.Exit(err.Error(), exitCode(err))
		}
		return nil
	},
}
