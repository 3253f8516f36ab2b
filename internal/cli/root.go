// Package cli implements the pantry command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pantrywisely/pantry/internal/connection"
	"github.com/pantrywisely/pantry/internal/logger"
	"github.com/pantrywisely/pantry/internal/metrics"
	"github.com/pantrywisely/pantry/internal/paths"
	"github.com/pantrywisely/pantry/internal/repository"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// rootFlags holds the global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
}

// app is the state shared by the subcommands of one root command.
type app struct {
	flags  rootFlags
	handle *connection.Handle
	now    func() time.Time

	configDir string
	config    *viper.Viper
	logger    *slog.Logger
}

// NewRootCmd creates the "pantry" command using the process-wide store
// handle.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{handle: connection.Default(), now: time.Now})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pantry",
		Short: "Track what is in the pantry and what to buy",
		Long: `pantry keeps a household pantry and shopping list in a document store
(a local SQLite database, PostgreSQL, or a hosted realtime database) and
serves them over a small JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory for the sqlite backend (default: platform data dir)")
	root.PersistentFlags().StringVar(&a.flags.backend, "backend", "", "store backend: sqlite, postgres or rtdb (default from config.yaml)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newSetCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newServeCmd(a))

	return root
}

// Execute runs the root command, closes the store and exits with the code
// matching the outcome.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if cerr := connection.Shutdown(); cerr != nil && err == nil {
		err = sysError("close store: %w", cerr)
	}
	os.Exit(reportError(root.ErrOrStderr(), err))
}

// reportError prints err and returns the exit code for it.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(w, "pantry:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// setup resolves the config directory, reads config.yaml and installs the
// logger.
func (a *app) setup(stderr io.Writer) error {
	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	v, err := loadConfig(dir)
	if err != nil {
		return sysError("%w", err)
	}
	level, err := logger.ParseLevel(v.GetString(cfgKeyLogLevel))
	if err != nil {
		return userError("config: %w", err)
	}
	a.configDir = dir
	a.config = v
	a.logger = logger.SetupDefault(stderr, level)
	return nil
}

// dataDir resolves the sqlite data directory.
func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.config.GetString(cfgKeyDataDir))
}

// repo opens the store through the handle and wraps it in a Repository.
func (a *app) repo(ctx context.Context, recorder metrics.Recorder) (*repository.Repository, error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return nil, sysError("resolve data dir: %w", err)
	}
	cfg := storeConfig(a.config, a.flags.backend, dataDir)
	if err := a.handle.Configure(cfg); err != nil {
		return nil, sysError("configure store: %w", err)
	}
	store, err := a.handle.Get(ctx)
	if err != nil {
		return nil, sysError("open store: %w", err)
	}
	return repository.New(store, a.logger, recorder), nil
}
