package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"moncal/internal/auth"
	"moncal/internal/capture"
	"moncal/internal/config"
	"moncal/internal/importer"
	appLog "moncal/internal/log"
	"moncal/internal/model"
	"moncal/internal/seed"
	"moncal/internal/store"
	"moncal/internal/web"
)

const version = "0.1.0"

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "moncal",
		Usage:   "Month calendar with a simple add-event form.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "moncal.yaml",
				Usage:   "Path to config file (created with defaults if missing)",
				EnvVars: []string{"MONCAL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides config)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
			importCommand(),
			snapshotCommand(),
			hashPasswordCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("moncal failed", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies MONCAL_* overrides and the
// --log-level flag, and sets the global log level.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		appLog.Error("failed to close store", err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the month calendar over HTTP.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
			&cli.BoolFlag{Name: "migrate", Value: true, Usage: "Create or update the schema before serving"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if v := c.String("listen"); v != "" {
				cfg.Listen = v
			}

			appLog.Info("moncal starting",
				"version", version,
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"week_start", cfg.WeekStart,
				"db_driver", cfg.Database.Driver,
				"import_sources", len(cfg.Import.Sources),
			)

			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore(st)

			ctx, cancel := signalContext(c.Context)
			defer cancel()

			if c.Bool("migrate") {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
			}

			var imp *importer.Importer
			if len(cfg.Import.Sources) > 0 && cfg.Import.Cron != "" {
				loc, _ := cfg.LoadLocation()
				imp = importer.New(st, cfg.Import, nil, loc)
				if err := imp.Start(ctx, cfg.Import.Cron); err != nil {
					return fmt.Errorf("schedule import: %w", err)
				}
			}

			srv, err := web.NewServer(cfg, st)
			if err != nil {
				return err
			}
			runErr := srv.Run(ctx)

			// Stop the schedule before the deferred store close.
			if imp != nil {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
				imp.Stop(stopCtx)
				stopCancel()
			}
			if runErr != nil {
				return fmt.Errorf("http server: %w", runErr)
			}
			appLog.Info("moncal exiting")
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the events schema.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore(st)

			if err := st.Migrate(c.Context); err != nil {
				return err
			}
			appLog.Info("schema up to date", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Insert sample events (default: Meeting and Gym today).",
		ArgsUsage: "[title...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Date for the events, YYYY-MM-DD (default: today)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			loc, _ := cfg.LoadLocation()
			date := model.DateOf(time.Now().In(loc))
			if v := c.String("date"); v != "" {
				if date, err = model.ParseDate(v); err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}

			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore(st)

			if err := st.Migrate(c.Context); err != nil {
				return err
			}
			events, err := seed.Run(c.Context, st, date, c.Args().Slice())
			if err != nil {
				return err
			}
			fmt.Printf("Added %d events on %s\n", len(events), date)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import the configured ICS feeds once.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if len(cfg.Import.Sources) == 0 {
				return errors.New("no import.sources configured")
			}

			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore(st)

			ctx, cancel := signalContext(c.Context)
			defer cancel()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			loc, _ := cfg.LoadLocation()
			res, err := importer.New(st, cfg.Import, nil, loc).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d of %d occurrences from %d feeds (%d failed)\n",
				res.Inserted, res.Occurrences, res.Sources, res.Failed)
			return nil
		},
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Render the month page in headless Chromium and save a PNG.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Page to capture (default: the configured listener)"},
			&cli.StringFlag{Name: "month", Usage: "Month to capture, YYYY-MM"},
			&cli.StringFlag{Name: "out", Usage: "Output PNG path (overrides config)"},
			&cli.IntFlag{Name: "width", Usage: "Viewport width in pixels (overrides config)"},
			&cli.IntFlag{Name: "height", Usage: "Viewport height in pixels (overrides config)"},
			&cli.StringFlag{Name: "chrome", Usage: "Path to the Chromium binary"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			opts := capture.OptionsFromConfig(cfg)
			if v := c.String("url"); v != "" {
				opts.URL = v
			}
			if v := c.String("month"); v != "" {
				if opts.URL, err = capture.WithMonth(opts.URL, v); err != nil {
					return err
				}
			}
			if v := c.String("out"); v != "" {
				opts.OutputPath = v
			}
			if v := c.Int("width"); v > 0 {
				opts.Width = v
			}
			if v := c.Int("height"); v > 0 {
				opts.Height = v
			}
			opts.ExecPath = c.String("chrome")

			ctx, cancel := signalContext(c.Context)
			defer cancel()
			return capture.Snapshot(ctx, opts)
		},
	}
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Prompt for a password and print its bcrypt hash for basic_auth.password_hash.",
		Action: func(c *cli.Context) error {
			pw, err := auth.PromptNewPassword(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
