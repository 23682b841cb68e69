package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/db"
	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/mcp"
	"github.com/hpungsan/relicdex/internal/ops"
	"github.com/hpungsan/relicdex/internal/web"
)

// appEnv carries the process-wide dependencies of a CLI run.
// Config and database are opened on first use so preview and help never touch ~/.relicdex.
type appEnv struct {
	baseDir string
	workDir string
	out     io.Writer
	errOut  io.Writer
	log     *slog.Logger

	cfg *config.Config
	db  *sql.DB
}

func (e *appEnv) config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := config.LoadWithRepo(e.baseDir, e.workDir)
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.cfg = cfg
	return cfg, nil
}

func (e *appEnv) database() (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	database, err := db.Init(e.baseDir)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("initialize database: %w", err))
	}
	db.ConfigurePool(database, cfg)
	e.db = database
	return database, nil
}

func (e *appEnv) close() {
	if e.db != nil {
		e.db.Close()
	}
}

// newLogger builds the stderr logger selected by the global flags.
func newLogger(w io.Writer, verbose, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "relicdex",
		Usage:   "Index tabular item catalogs for local relevance search",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log at debug level"},
			&cli.BoolFlag{Name: "log-json", Usage: "Emit logs as JSON lines on stderr"},
		},
		Before: func(c *cli.Context) error {
			env.log = newLogger(env.errOut, c.Bool("verbose"), c.Bool("log-json"))
			return nil
		},
		Writer:    env.out,
		ErrWriter: env.errOut,
		Commands: []*cli.Command{
			buildCmd(env),
			previewCmd(env),
			searchCmd(env),
			collectionsCmd(env),
			dropCmd(env),
			fetchCmd(env),
			chunksCmd(env),
			exportCmd(env),
			serveWebCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func buildCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Extract, chunk and index a workbook into a collection",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Path to the .xlsx catalog"},
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Required: true, Usage: "Collection name"},
			&cli.BoolFlag{Name: "rebuild", Usage: "Replace the collection if it already exists"},
		},
		Action: func(c *cli.Context) error {
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			output, err := ops.Build(c.Context, database, env.cfg, env.log, ops.BuildInput{
				Source:     c.String("source"),
				Collection: c.String("collection"),
				Rebuild:    c.Bool("rebuild"),
			})
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func previewCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Run the pipeline without storing anything and print the chunks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Path to the .xlsx catalog"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := env.config()
			if err != nil {
				return env.outputError(err)
			}
			output, err := ops.Preview(c.Context, cfg, env.log, ops.PreviewInput{Source: c.String("source")})
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Rank a collection's chunks against a query",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Required: true, Usage: "Collection name"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Max hits (default: config search_limit)"},
			&cli.Float64Flag{Name: "min-relevance", Usage: "Drop hits scoring below this (default: config min_relevance)"},
		},
		Action: func(c *cli.Context) error {
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			input := ops.SearchInput{
				Collection: c.String("collection"),
				Query:      strings.Join(c.Args().Slice(), " "),
				Limit:      c.Int("limit"),
			}
			if c.IsSet("min-relevance") {
				v := c.Float64("min-relevance")
				input.MinRelevance = &v
			}
			output, err := ops.Search(c.Context, database, env.cfg, input)
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func collectionsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "collections",
		Usage: "List stored collections",
		Action: func(c *cli.Context) error {
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			output, err := ops.ListCollections(c.Context, database)
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func dropCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "drop",
		Usage:     "Delete a collection and all of its chunks",
		ArgsUsage: "NAME",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return env.outputError(errors.NewInvalidRequest("drop takes exactly one collection name"))
			}
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			output, err := ops.DropCollection(c.Context, database, ops.DropCollectionInput{Collection: c.Args().First()})
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func fetchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Print one chunk by id",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Required: true, Usage: "Collection name"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return env.outputError(errors.NewInvalidRequest("fetch takes exactly one chunk id"))
			}
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			output, err := ops.FetchChunk(c.Context, database, ops.FetchChunkInput{
				Collection: c.String("collection"),
				ID:         c.Args().First(),
			})
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func chunksCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "chunks",
		Usage: "List a collection's chunks in emission order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Required: true, Usage: "Collection name"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			output, err := ops.ListChunks(c.Context, database, ops.ListChunksInput{
				Collection: c.String("collection"),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			})
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a collection's chunks to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Required: true, Usage: "Collection name"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: ~/.relicdex/exports/<collection>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			output, err := ops.Export(c.Context, database, env.cfg, ops.ExportInput{
				Collection: c.String("collection"),
				Path:       c.String("path"),
			})
			if err != nil {
				return env.outputError(err)
			}
			return env.outputJSON(output)
		},
	}
}

func serveWebCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve-web",
		Usage: "Serve the read-only browser UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8741, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			srv, err := web.NewServer(database, env.cfg, env.log, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return env.outputError(err)
			}
			if err := web.Run(srv, env.log); err != nil {
				return env.outputError(err)
			}
			return nil
		},
	}
}

func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools over stdio",
		Action: func(c *cli.Context) error {
			database, err := env.database()
			if err != nil {
				return env.outputError(err)
			}
			if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
				env.log.Warn("unknown tools in disabled_tools", "tools", unknown, "valid", mcp.AllToolNames())
			}
			if err := mcp.Run(database, env.cfg, Version); err != nil {
				return env.outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func (e *appEnv) outputJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errorBody is the JSON shape written to stderr on failure.
type errorBody struct {
	Error struct {
		Code    errors.ErrorCode `json:"code"`
		Message string           `json:"message"`
		Details map[string]any   `json:"details,omitempty"`
	} `json:"error"`
}

// outputError writes err as JSON to stderr and returns a silent exit code.
func (e *appEnv) outputError(err error) error {
	var rErr *errors.RelicError
	if !stderrors.As(err, &rErr) {
		rErr = errors.NewInternal(err)
	}

	var body errorBody
	body.Error.Code = rErr.Code
	body.Error.Message = rErr.Message
	body.Error.Details = rErr.Details

	enc := json.NewEncoder(e.errOut)
	_ = enc.Encode(body)
	return cli.Exit("", 1)
}
