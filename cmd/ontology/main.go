// Command ontology is the CLI adapter over the query engine: one
// subcommand per core operation, plus mcp to serve over stdio and
// metrics to expose the Prometheus registry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/lightningralf/ontology-engine/internal/ast"
	"github.com/lightningralf/ontology-engine/internal/cache"
	"github.com/lightningralf/ontology-engine/internal/config"
	"github.com/lightningralf/ontology-engine/internal/mcp"
	"github.com/lightningralf/ontology-engine/internal/metrics"
	"github.com/lightningralf/ontology-engine/internal/orchestrator"
	"github.com/lightningralf/ontology-engine/internal/rename"
	"github.com/lightningralf/ontology-engine/internal/search"
	"github.com/lightningralf/ontology-engine/internal/symbolmap"
	"github.com/lightningralf/ontology-engine/internal/types"
	"github.com/lightningralf/ontology-engine/internal/ui"
	"github.com/lightningralf/ontology-engine/internal/version"
)

type app struct {
	cfg        *config.Config
	pool       *search.Pool
	astLayer   *ast.Layer
	cache      *cache.ResultCache
	metrics    *metrics.Engine
	engine     *orchestrator.Engine
	renamer    *rename.Planner
	symbolMaps *symbolmap.Builder
}

func newApp(root string) (*app, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool := search.NewPool(cfg.Project.Root, cfg.Layer1.MaxProcesses, cfg.Exclude)
	astLayer := ast.NewLayer(cfg.Layer2.MaxFileSize)
	resultCache := cache.NewResultCache(cfg.Cache.MaxEntries)
	m := metrics.Default()
	engine := orchestrator.New(cfg, pool, astLayer, resultCache, m)

	return &app{
		cfg:        cfg,
		pool:       pool,
		astLayer:   astLayer,
		cache:      resultCache,
		metrics:    m,
		engine:     engine,
		renamer:    rename.New(engine, m),
		symbolMaps: symbolmap.New(engine, astLayer, pool, cfg, m),
	}, nil
}

func loadConfigWithOverrides(c *cli.Context) (*app, error) {
	root := c.String("root")
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
		}
		root = abs
	}
	return newApp(root)
}

func main() {
	cliApp := &cli.App{
		Name:                   "ontology",
		Usage:                  "Tiered code-intelligence query engine: where is it defined/used, and how to rename it safely",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Workspace root (defaults to cwd)"},
			&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Disable colored messages (results are always printed as JSON)"},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
		},
		Before: func(c *cli.Context) error {
			ui.Init(c.Bool("no-color") || c.Bool("json"))
			return nil
		},
		Commands: []*cli.Command{
			findDefinitionCommand(),
			findReferencesCommand(),
			exploreCommand(),
			prepareRenameCommand(),
			renameCommand(),
			symbolMapCommand(),
			mcpCommand(),
			metricsCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func identifierFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "uri", Usage: "file:// URI to scope the search"},
		&cli.IntFlag{Name: "max-results", Value: 100, Usage: "Maximum results"},
		&cli.BoolFlag{Name: "precise", Usage: "Force L2 AST validation"},
		&cli.BoolFlag{Name: "ast-only", Usage: "Return only AST-validated results (find-definition only; find-references and explore ignore it)"},
		&cli.BoolFlag{Name: "include-declaration", Usage: "Include the declaration site (findReferences)"},
	}
}

func queryRequestFrom(c *cli.Context) types.QueryRequest {
	return types.QueryRequest{
		Identifier:         c.Args().First(),
		URI:                types.Normalize(c.String("uri")),
		MaxResults:         c.Int("max-results"),
		Precise:            c.Bool("precise"),
		ASTOnly:            c.Bool("ast-only"),
		IncludeDeclaration: c.Bool("include-declaration"),
	}
}

func emit(c *cli.Context, data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func findDefinitionCommand() *cli.Command {
	return &cli.Command{
		Name:      "find-definition",
		Usage:     "Find where an identifier is declared",
		ArgsUsage: "<identifier>",
		Flags:     identifierFlags(),
		Action: func(c *cli.Context) error {
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			result, err := a.engine.FindDefinition(context.Background(), queryRequestFrom(c))
			if err != nil {
				return err
			}
			return emit(c, result)
		},
	}
}

func findReferencesCommand() *cli.Command {
	return &cli.Command{
		Name:      "find-references",
		Usage:     "Find every usage site of an identifier",
		ArgsUsage: "<identifier>",
		Flags:     identifierFlags(),
		Action: func(c *cli.Context) error {
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			result, err := a.engine.FindReferences(context.Background(), queryRequestFrom(c))
			if err != nil {
				return err
			}
			return emit(c, result)
		},
	}
}

func exploreCommand() *cli.Command {
	return &cli.Command{
		Name:      "explore",
		Usage:     "Run findDefinition and findReferences concurrently",
		ArgsUsage: "<identifier>",
		Flags:     identifierFlags(),
		Action: func(c *cli.Context) error {
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			qreq := queryRequestFrom(c)
			result := a.engine.ExploreCodebase(context.Background(), types.ExploreRequest{
				Identifier:         qreq.Identifier,
				URI:                qreq.URI,
				IncludeDeclaration: qreq.IncludeDeclaration,
				MaxResults:         qreq.MaxResults,
				Precise:            qreq.Precise,
			})
			return emit(c, result)
		},
	}
}

func prepareRenameCommand() *cli.Command {
	return &cli.Command{
		Name:      "prepare-rename",
		Usage:     "Validate that an identifier can be renamed",
		ArgsUsage: "<identifier>",
		Flags:     []cli.Flag{&cli.StringFlag{Name: "uri", Usage: "file:// URI to scope the search"}},
		Action: func(c *cli.Context) error {
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			result, err := a.renamer.PrepareRename(context.Background(), types.RenameRequest{
				URI:        types.Normalize(c.String("uri")),
				Identifier: c.Args().First(),
			})
			if err != nil {
				return err
			}
			return emit(c, result)
		},
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Build a WorkspaceEdit renaming an identifier (never applied to disk)",
		ArgsUsage: "<identifier> <newName>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "uri", Usage: "file:// URI to scope the search"},
			&cli.BoolFlag{Name: "dry-run", Value: true, Usage: "Signal that the caller will not apply the edit"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("usage: ontology rename <identifier> <newName>")
			}
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			spinner := ui.NewSpinner("planning rename")
			if spinner != nil {
				defer spinner.Finish()
			}
			result, err := a.renamer.Rename(context.Background(), types.RenameRequest{
				URI:        types.Normalize(c.String("uri")),
				Identifier: c.Args().Get(0),
				NewName:    c.Args().Get(1),
				DryRun:     c.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return emit(c, result)
		},
	}
}

func symbolMapCommand() *cli.Command {
	return &cli.Command{
		Name:      "symbol-map",
		Usage:     "Fuse declarations, references, imports and exports for an identifier",
		ArgsUsage: "<identifier>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "uri", Usage: "file:// URI to scope the search"},
			&cli.IntFlag{Name: "max-files", Value: 20, Usage: "Maximum candidate files"},
			&cli.BoolFlag{Name: "ast-only", Usage: "Skip the text-based reference fallback"},
		},
		Action: func(c *cli.Context) error {
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			spinner := ui.NewSpinner("building symbol map")
			if spinner != nil {
				defer spinner.Finish()
			}
			result, err := a.symbolMaps.Build(context.Background(), types.SymbolMapRequest{
				Identifier: c.Args().First(),
				URI:        types.Normalize(c.String("uri")),
				MaxFiles:   c.Int("max-files"),
				ASTOnly:    c.Bool("ast-only"),
			})
			if err != nil {
				return err
			}
			return emit(c, result)
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the six core operations over the Model Context Protocol (stdio)",
		Action: func(c *cli.Context) error {
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.Cache.Enabled {
				go a.cache.Warm(ctx, a.cfg.Cache.WarmSeeds, func(ctx context.Context, identifier string) error {
					_, err := a.engine.FindDefinition(ctx, types.QueryRequest{Identifier: identifier})
					return err
				})
				if err := a.cache.WatchInvalidation(ctx, a.cfg.Project.Root); err != nil {
					ui.Warning("cache invalidation watcher unavailable: " + err.Error())
				}
			}

			server := mcp.NewServer(a.engine, a.renamer, a.symbolMaps)
			return server.Run(ctx)
		},
	}
}

func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Expose the Prometheus registry over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":9090", Usage: "Listen address"},
		},
		Action: func(c *cli.Context) error {
			a, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			ui.Infof("serving metrics on %s/metrics", c.String("addr"))
			mux := http.NewServeMux()
			mux.Handle("/metrics", a.metrics.Handler())
			return http.ListenAndServe(c.String("addr"), mux)
		},
	}
}
