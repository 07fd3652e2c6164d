// Package cli provides the policyctl command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/policykeeper"
	"github.com/felixgeelhaar/policykeeper/infrastructure/config"
)

// Version information set at build time.
var (
	Version   = policykeeper.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	driver     string
	dbPath     string
	dsn        string
	actor      string
	jsonOutput bool
}

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
	opts   globalOptions
	rt     *runtime
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "policyctl",
		Short: "Policy approval and versioning engine",
		Long: `policyctl manages governance policies: their approval chains, their
lifecycle status and their append-only version history.

Storage is selected by the configuration file or the --driver, --db and
--dsn flags. Without either, state lives in memory for one invocation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := app.root.PersistentFlags()
	flags.StringVarP(&app.opts.configPath, "config", "c", "", "Path to configuration file (YAML or JSON)")
	flags.StringVar(&app.opts.driver, "driver", "", "Storage driver: memory, sqlite or postgres (overrides config)")
	flags.StringVar(&app.opts.dbPath, "db", "", "SQLite database path (implies --driver sqlite)")
	flags.StringVar(&app.opts.dsn, "dsn", "", "PostgreSQL connection string (implies --driver postgres)")
	flags.StringVar(&app.opts.actor, "actor", "", "User recorded as the actor of lifecycle changes")
	flags.BoolVar(&app.opts.jsonOutput, "json", false, "Output results as JSON")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newPolicyCmd(),
		app.newUserCmd(),
		app.newApprovalCmd(),
		app.newPolicyVersionCmd(),
		app.newAuditCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application and releases the stores it opened.
func (a *App) Execute(ctx context.Context) (err error) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if a.rt != nil {
			err = errors.Join(err, a.rt.Close(context.Background()))
			a.rt = nil
		}
	}()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// runtime opens the services on first use.
func (a *App) runtime(ctx context.Context) (*runtime, error) {
	if a.rt != nil {
		return a.rt, nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	rt, err := openRuntime(ctx, cfg, a.stderr)
	if err != nil {
		return nil, err
	}
	a.rt = rt
	return rt, nil
}

// loadConfig reads the configuration file, if any, and applies flag overrides.
func (a *App) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if a.opts.configPath != "" {
		loaded, err := config.NewLoader().LoadFile(a.opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	if a.opts.driver != "" {
		cfg.Storage.Driver = a.opts.driver
	}
	if a.opts.dbPath != "" {
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.SQLite.Path = a.opts.dbPath
	}
	if a.opts.dsn != "" {
		cfg.Storage.Driver = config.DriverPostgres
		cfg.Storage.Postgres.DSN = a.opts.dsn
	}

	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %v", config.ErrValidationFailed, errs)
	}
	return cfg, nil
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "policyctl version %s\n", Version)
			_, _ = fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
