package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/hylla/animebridge/internal/adapters/catalog/mal"
	"github.com/hylla/animebridge/internal/adapters/storage/sqlite"
	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/config"
	"github.com/hylla/animebridge/internal/platform"
	"github.com/hylla/animebridge/internal/render"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// clipboardWriteAll is swapped in tests.
var clipboardWriteAll = clipboard.WriteAll

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command tree with explicit args and writers.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent flags and writers shared by every command.
type rootOptions struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the command tree. Without a subcommand it starts the TUI.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("ANIMEBRIDGE_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("ANIMEBRIDGE_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:   "animebridge",
		Short: "Track anime list changes and hand them to your assistant",
		Long: `animebridge polls your anime list, diffs it against the last snapshot you
acknowledged, and keeps one pending report until a consumer commits it.

Without a subcommand it opens the interactive pending-report view.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("animebridge {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newSyncCommand(opts),
		newWatchCommand(opts),
		newPendingCommand(opts),
		newConsumeCommand(opts),
		newContextCommand(opts),
		newPlanCommand(opts),
		newRespondCommand(opts),
		newHistoryCommand(opts),
		newStatusCommand(opts),
		newResetCommand(opts),
		newServeCommand(opts),
		newConfigureCommand(opts),
		newPathsCommand(opts),
	)
	return root
}

// resolved carries config resolution output shared by commands that do not open storage.
type resolved struct {
	paths        platform.Paths
	configPath   string
	cfg          config.Config
	dbOverridden bool
}

// resolve applies flag, env, and file precedence to paths and config.
func (o *rootOptions) resolve() (resolved, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return resolved{}, err
	}

	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv(config.EnvConfigPath)); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv(config.EnvDBPath)); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return resolved{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	cfg = cfg.ApplyEnv(os.Getenv)
	return resolved{paths: paths, configPath: configPath, cfg: cfg, dbOverridden: dbOverridden}, nil
}

// session is one opened runtime: config, logger, storage, and service.
type session struct {
	resolved
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
	locale string
}

// open resolves config and wires storage, catalog, and the application service.
// A quiet session keeps runtime logs off the console.
func (o *rootOptions) open(command string, quiet bool) (*session, error) {
	res, err := o.resolve()
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, res.cfg.Logging, res.paths.LogDir, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quiet {
		logger.SetConsoleEnabled(false)
	}

	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", res.configPath, "data_dir", res.paths.DataDir, "db_path", res.cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	loc, err := res.cfg.Location()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	logger.Debug("opening sqlite repository", "db_path", res.cfg.Database.Path)
	if err := config.EnsureConfigDir(res.cfg.Database.Path); err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	repo, err := sqlite.Open(res.cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", res.cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}

	locale := render.ResolveLocale(res.cfg.Render.Language, os.Getenv("LANG"))
	catalog := mal.NewClient(
		mal.WithBaseURL(res.cfg.Catalog.BaseURL),
		mal.WithTimeout(res.cfg.TimeoutDuration()),
	)
	svc := app.NewService(catalog, repo, uuid.NewString, time.Now, app.ServiceConfig{
		Username:         res.cfg.Catalog.Username,
		ClientID:         res.cfg.Catalog.ClientID,
		HistoryLimit:     res.cfg.Catalog.HistoryLimit,
		FavoritesLimit:   res.cfg.Catalog.FavoritesLimit,
		ListLimit:        res.cfg.Catalog.ListLimit,
		PlanPromptLimit:  res.cfg.Catalog.PlanLimit,
		Cooldown:         res.cfg.CooldownDuration(),
		BaselineLookback: res.cfg.BaselineLookbackDuration(),
		Locale:           locale,
		Location:         loc,
	}, logger)
	logger.Debug("application service initialized", "locale", locale, "has_credentials", res.cfg.HasCredentials())

	return &session{resolved: res, logger: logger, repo: repo, svc: svc, locale: locale}, nil
}

// Close releases storage and the dev log sink.
func (s *session) Close(stderr io.Writer) {
	if s == nil {
		return
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Warn("sqlite close failed", "db_path", s.cfg.Database.Path, "err", err)
	}
	if err := s.logger.Close(); err != nil && s.logger.consoleActive() {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// withSession opens a session, runs fn, and closes it.
func (o *rootOptions) withSession(command string, quiet bool, fn func(*session) error) error {
	s, err := o.open(command, quiet)
	if err != nil {
		return err
	}
	defer s.Close(o.stderr)

	s.logger.Debug("command flow start", "command", command)
	if err := fn(s); err != nil {
		s.logger.Debug("command flow failed", "command", command, "err", err)
		return explainError(err)
	}
	s.logger.Debug("command flow complete", "command", command)
	return nil
}

// explainError adds a next step to errors a user can fix locally.
func explainError(err error) error {
	switch {
	case errors.Is(err, app.ErrCredentialsMissing):
		return fmt.Errorf("%w (run `animebridge configure --username <name> --client-id <id>`)", err)
	case errors.Is(err, app.ErrNoPendingReport):
		return fmt.Errorf("%w (run `animebridge sync` first)", err)
	default:
		return err
	}
}

// parseBoolEnv parses a boolean environment variable, reporting whether it was set.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
