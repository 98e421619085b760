// Package cli wires configuration, logging, the store and the state hub
// behind tally's cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/tally/internal/backup"
	"github.com/sadopc/tally/internal/config"
	"github.com/sadopc/tally/internal/logging"
	"github.com/sadopc/tally/internal/state"
	"github.com/sadopc/tally/internal/store"
	"github.com/sadopc/tally/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// closeTimeout bounds how long shutdown waits for queued writes.
const closeTimeout = 10 * time.Second

type globalOptions struct {
	configPath string
	dbPath     string
	logLevel   string
}

func bindGlobalFlags(fs *pflag.FlagSet, o *globalOptions) {
	fs.StringVar(&o.configPath, "config", config.DefaultPath(), "config file")
	fs.StringVar(&o.dbPath, "db", "", "database file (overrides db_path)")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// NewRootCommand builds the tally command tree. Without a subcommand it
// starts the terminal UI.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "tally",
		Short:         "Personal tracker for habits, money, counters and dates",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd.Context(), opts)
		},
	}
	bindGlobalFlags(root.PersistentFlags(), opts)

	root.AddCommand(newExportCommand(opts))
	root.AddCommand(newImportCommand(opts))
	root.AddCommand(newHabitCommand(opts))
	root.AddCommand(newStudyCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	return root
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Write a backup of all data",
		Long:  "Write every stored key to a JSON backup, or the daily and monthly series to CSV.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q (want json or csv)", format)
			}
			path := fmt.Sprintf("tally-backup-%s.%s", time.Now().Format("2006-01-02"), format)
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(cmd, opts, format, path)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or csv")
	return cmd
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Restore a JSON backup",
		Long:  "Apply a JSON backup. Keys present in the file replace stored values; keys it leaves out are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}
}

func newHabitCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Adjust the daily habit count",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <YYYY-MM-DD> <count>",
		Short: "Set the count of one day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("count %q is not a whole number", args[1])
			}
			return withHub(cmd, opts, func(ctx context.Context, hub *state.Hub) error {
				if err := hub.Habit.SetDay(ctx, args[0], n); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], n)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Set today's count to zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(cmd, opts, func(ctx context.Context, hub *state.Hub) error {
				if err := hub.Habit.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Today's count reset")
				return nil
			})
		},
	})
	return cmd
}

func newStudyCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Record study card reviews",
	}

	var missed bool
	review := &cobra.Command{
		Use:   "review <card>",
		Short: "Record an answer; known moves the card up a level, --missed resets it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(cmd, opts, func(ctx context.Context, hub *state.Hub) error {
				lvl, err := hub.Study.Review(ctx, args[0], !missed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: level %d/%d\n", strings.TrimSpace(args[0]), lvl, state.MaxLevel)
				return nil
			})
		},
	}
	review.Flags().BoolVar(&missed, "missed", false, "the answer was wrong")
	cmd.AddCommand(review)

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <card>",
		Short: "Drop a card's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(cmd, opts, func(ctx context.Context, hub *state.Hub) error {
				if err := hub.Study.Forget(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show how many cards are known and mastered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(cmd, opts, func(ctx context.Context, hub *state.Hub) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Seen %d  Known %d  Mastered %d\n",
					hub.Study.Seen(), hub.Study.KnownCount(), hub.Study.MasteredCount())
				return nil
			})
		},
	})
	return cmd
}

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if !force {
				if _, err := os.Stat(expandPath(path)); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			cfg := config.Default()
			if opts.dbPath != "" {
				cfg.DBPath = opts.dbPath
			}
			if opts.logLevel != "" {
				cfg.Log.Level = strings.ToLower(opts.logLevel)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

// expandPath resolves a leading ~ the way config.Load does.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// withHub opens the environment, loads every feature and runs fn. Queued
// writes are drained when the environment closes.
func withHub(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, hub *state.Hub) error) (err error) {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, e.Close())
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.hub.Load(ctx); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return fn(ctx, e.hub)
}

// env is everything a command needs, opened in dependency order.
type env struct {
	cfg    config.Config
	log    *logging.Logger
	store  *store.Store
	writer *state.Writer
	hub    *state.Hub
}

func openEnv(opts *globalOptions) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	st, err := store.New(dbPath, store.WithLogger(log.Zap()))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Infow("store opened", "path", dbPath)

	w := state.NewWriter(st, cfg.Writer, log)
	hub := state.NewHub(state.Deps{KV: st, Writer: w, Log: log})
	return &env{cfg: cfg, log: log, store: st, writer: w, hub: hub}, nil
}

// Close drains queued writes before closing the database.
func (e *env) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := errors.Join(e.writer.Close(ctx), e.store.Close())
	if n := e.writer.Failures(); n > 0 {
		e.log.Warnw("writes lost", "count", n)
	}
	_ = e.log.Close()
	return err
}

func runUI(ctx context.Context, opts *globalOptions) error {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	exportDir, err := os.UserHomeDir()
	if err != nil {
		exportDir = "."
	}
	return tui.Run(tui.Options{
		Context:   ctx,
		Hub:       e.hub,
		KV:        e.store,
		Writer:    e.writer,
		ExportDir: exportDir,
	})
}

func runExport(cmd *cobra.Command, opts *globalOptions, format, path string) error {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := backup.Export(cmd.Context(), e.store, time.Now())
	if err != nil {
		return err
	}
	for _, key := range doc.Skipped {
		e.log.Warnw("skipped unreadable key", "key", key)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped unreadable %s\n", key)
	}

	if format == "csv" {
		err = backup.ToCSV(backup.SeriesOf(doc), path)
	} else {
		err = backup.WriteFile(doc, path)
	}
	if err != nil {
		return err
	}

	abs, _ := filepath.Abs(path)
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d keys to %s\n", len(doc.Keys()), abs)
	return nil
}

func runImport(cmd *cobra.Command, opts *globalOptions, path string) error {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := backup.ImportQueued(cmd.Context(), e.writer, path)
	if err != nil {
		return err
	}
	e.log.Infow("backup imported", "path", path, "keys", doc.Keys())
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d keys from %s\n", len(doc.Keys()), path)
	return nil
}
