package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/annot/internal/config"
	"github.com/hpungsan/annot/internal/db"
	"github.com/hpungsan/annot/internal/docstore"
	"github.com/hpungsan/annot/internal/errors"
	"github.com/hpungsan/annot/internal/logging"
	"github.com/hpungsan/annot/internal/mcp"
	"github.com/hpungsan/annot/internal/note"
	"github.com/hpungsan/annot/internal/ops"
	"github.com/hpungsan/annot/internal/web"
)

// appState holds what commands share. The database and store are opened on
// first use so that help and version never touch the disk.
type appState struct {
	stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  *docstore.Store
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(stdout, stderr io.Writer) *cli.App {
	rt := &appState{stderr: stderr}

	app := &cli.App{
		Name:      "annot",
		Usage:     "Document annotation backend",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Usage: "Global config directory (default ~/.annot)"},
			&cli.StringFlag{Name: "data-dir", Aliases: []string{"d"}, Usage: "Data directory for the database and uploads"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug|info|warn|error"},
		},
		Before: rt.load,
		After: func(_ *cli.Context) error {
			return rt.close()
		},
		Commands: []*cli.Command{
			serveCmd(rt),
			mcpCmd(rt),
			migrateCmd(rt),
			documentsCmd(rt),
			notesCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// load resolves configuration: defaults, global file, repo file, env, flags.
func (rt *appState) load(c *cli.Context) error {
	globalDir := c.String("config-dir")
	if globalDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			globalDir = filepath.Join(home, ".annot")
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	cfg, err := config.LoadWithRepo(globalDir, cwd)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid environment: %v", err), 1)
	}
	if v := c.String("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = logging.Level(v)
	}
	if err := cfg.Finalize(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), 1)
	}

	rt.cfg = cfg
	rt.logger = logging.New(cfg.Logging, rt.stderr)
	return nil
}

// open initializes the database and upload store once.
func (rt *appState) open(ctx context.Context) error {
	if rt.db != nil {
		return nil
	}

	database, err := db.Init(ctx, rt.cfg.DBPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize database: %v", err), 1)
	}
	db.ConfigurePool(database, rt.cfg)

	store, err := docstore.New(rt.cfg.UploadDir, docstore.NewMemoryRegistry(), rt.logger)
	if err != nil {
		database.Close()
		return cli.Exit(fmt.Sprintf("failed to initialize upload store: %v", err), 1)
	}

	rt.db = database
	rt.store = store
	return nil
}

func (rt *appState) close() error {
	if rt.db == nil {
		return nil
	}
	err := rt.db.Close()
	rt.db = nil
	return err
}

// serveCmd creates the serve command.
func serveCmd(rt *appState) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen interface"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				rt.cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				rt.cfg.Port = c.Int("port")
			}
			if err := rt.open(c.Context); err != nil {
				return err
			}

			rt.logger.Info("starting annot",
				"version", Version,
				"data_dir", rt.cfg.DataDir,
				"upload_dir", rt.cfg.UploadDir,
				"max_upload_bytes", rt.cfg.MaxUploadBytes(),
			)
			srv := web.NewServer(rt.db, rt.store, rt.cfg, rt.logger)
			return web.Run(srv, rt.logger)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(rt *appState) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			if unknown := mcp.ValidateDisabledTools(rt.cfg.DisabledTools); len(unknown) > 0 {
				rt.logger.Warn("ignoring unknown disabled_tools", "tools", unknown)
			}
			if err := rt.open(c.Context); err != nil {
				return err
			}
			return mcp.Run(rt.db, rt.store, rt.cfg, rt.logger, Version)
		},
	}
}

// migrateCmd creates the migrate command.
func migrateCmd(rt *appState) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the notes database and report columns added",
		Action: func(c *cli.Context) error {
			if err := rt.open(c.Context); err != nil {
				return err
			}
			// Init already migrated; a second pass reports nothing unless the
			// schema changed underneath.
			added, err := db.Migrate(c.Context, rt.db)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if added == nil {
				added = []string{}
			}
			return outputJSON(c, map[string]any{"db_path": rt.cfg.DBPath, "added_columns": added})
		},
	}
}

// documentsCmd creates the documents command group.
func documentsCmd(rt *appState) *cli.Command {
	return &cli.Command{
		Name:  "documents",
		Usage: "Manage uploaded documents",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List uploaded documents",
				Action: func(c *cli.Context) error {
					if err := rt.open(c.Context); err != nil {
						return err
					}
					out, err := ops.ListDocuments(c.Context, rt.store, rt.db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				},
			},
			{
				Name:      "upload",
				Usage:     "Upload a local PDF or image",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filename", Aliases: []string{"n"}, Usage: "Display filename (defaults to the file's base name)"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one path is required"))
					}
					if err := rt.open(c.Context); err != nil {
						return err
					}

					// Paths named on the command line are trusted
					cfg := *rt.cfg
					cfg.AllowUnsafePaths = true

					out, err := ops.UploadFile(c.Context, rt.store, &cfg, ops.UploadFileInput{
						Path:     c.Args().First(),
						Filename: c.String("filename"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				},
			},
		},
	}
}

// noteFlags are shared by notes create and notes update.
func noteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "doc-id", Usage: "Document id", Required: true},
		&cli.IntFlag{Name: "page", Usage: "1-based page number (default 1)"},
		&cli.Float64Flag{Name: "x", Usage: "Horizontal position", Required: true},
		&cli.Float64Flag{Name: "y", Usage: "Vertical position", Required: true},
		&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Note text (read from stdin when omitted and piped)"},
		&cli.StringFlag{Name: "color", Usage: "Hex color (default #fbbf24)"},
		&cli.StringFlag{Name: "space", Usage: "Coordinate space: normalized|pixel"},
		&cli.IntFlag{Name: "ref-width", Usage: "Reference width for pixel coordinates"},
		&cli.IntFlag{Name: "ref-height", Usage: "Reference height for pixel coordinates"},
	}
}

// noteInputFromFlags builds a note.Input; unset optional flags stay absent.
func noteInputFromFlags(c *cli.Context) (note.Input, error) {
	in := note.Input{
		DocID:           c.String("doc-id"),
		Color:           c.String("color"),
		CoordinateSpace: note.CoordinateSpace(c.String("space")),
	}

	x, y := c.Float64("x"), c.Float64("y")
	in.X, in.Y = &x, &y

	if c.IsSet("page") {
		page := c.Int("page")
		in.Page = &page
	}
	if c.IsSet("ref-width") {
		w := c.Int("ref-width")
		in.RefWidth = &w
	}
	if c.IsSet("ref-height") {
		h := c.Int("ref-height")
		in.RefHeight = &h
	}

	switch {
	case c.IsSet("content"):
		content := c.String("content")
		in.Content = &content
	case stdinHasData():
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return in, errors.NewInternal(err)
		}
		content := string(data)
		in.Content = &content
	}

	return in, nil
}

// notesCmd creates the notes command group.
func notesCmd(rt *appState) *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Manage notes",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the notes of a document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc-id", Usage: "Document id", Required: true},
					&cli.IntFlag{Name: "page", Usage: "Only notes on this page"},
				},
				Action: func(c *cli.Context) error {
					if err := rt.open(c.Context); err != nil {
						return err
					}
					input := ops.ListNotesInput{DocID: c.String("doc-id")}
					if c.IsSet("page") {
						page := c.Int("page")
						input.Page = &page
					}
					out, err := ops.ListNotes(c.Context, rt.db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a note",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := noteIDArg(c)
					if err != nil {
						return outputError(err)
					}
					if err := rt.open(c.Context); err != nil {
						return err
					}
					n, err := ops.GetNote(c.Context, rt.db, ops.GetNoteInput{ID: id})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, n)
				},
			},
			{
				Name:  "create",
				Usage: "Create a note",
				Flags: noteFlags(),
				Action: func(c *cli.Context) error {
					in, err := noteInputFromFlags(c)
					if err != nil {
						return outputError(err)
					}
					if err := rt.open(c.Context); err != nil {
						return err
					}
					n, err := ops.CreateNote(c.Context, rt.db, in)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, n)
				},
			},
			{
				Name:      "update",
				Usage:     "Replace every field of a note",
				ArgsUsage: "<id>",
				Flags:     noteFlags(),
				Action: func(c *cli.Context) error {
					id, err := noteIDArg(c)
					if err != nil {
						return outputError(err)
					}
					in, err := noteInputFromFlags(c)
					if err != nil {
						return outputError(err)
					}
					if err := rt.open(c.Context); err != nil {
						return err
					}
					n, err := ops.UpdateNote(c.Context, rt.db, ops.UpdateNoteInput{ID: id, Note: in})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, n)
				},
			},
			{
				Name:      "delete",
				Usage:     "Permanently delete a note",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := noteIDArg(c)
					if err != nil {
						return outputError(err)
					}
					if err := rt.open(c.Context); err != nil {
						return err
					}
					out, err := ops.DeleteNote(c.Context, rt.db, ops.DeleteNoteInput{ID: id})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				},
			},
			{
				Name:  "export",
				Usage: "Render a document's notes as markdown or HTML",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc-id", Usage: "Document id", Required: true},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "md", Usage: "Output format: md|html"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
				},
				Action: func(c *cli.Context) error {
					format, err := ops.ParseExportFormat(c.String("format"))
					if err != nil {
						return outputError(err)
					}
					if err := rt.open(c.Context); err != nil {
						return err
					}

					// Paths named on the command line are trusted
					cfg := *rt.cfg
					cfg.AllowUnsafePaths = true

					out, err := ops.Export(c.Context, rt.db, rt.store, &cfg, ops.ExportInput{
						DocID:  c.String("doc-id"),
						Format: format,
						Path:   c.String("output"),
					})
					if err != nil {
						return outputError(err)
					}
					if out.Path != "" {
						return outputJSON(c, out)
					}
					_, err = io.WriteString(c.App.Writer, out.Content)
					return err
				},
			},
		},
	}
}

// Helper functions

// noteIDArg parses the single positional note id.
func noteIDArg(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, errors.NewInvalidRequest("exactly one note id is required")
	}
	return ops.ParseNoteID(c.Args().First())
}

// outputJSON writes v to the app's stdout as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if aErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", aErr.Code, aErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
