package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mustx/internal/repositories"
	"github.com/desertthunder/mustx/internal/services"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/desertthunder/mustx/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The MustApp client, snapshot store and loader are built on first use, after the configuration is loaded.
type Runner struct {
	config     *shared.Config
	client     services.Service
	store      repositories.SnapshotStore
	loader     *repositories.CachedLoader
	registry   *prometheus.Registry
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // skips loading the config file when set
	Client     services.Service
	Store      repositories.SnapshotStore
	Registry   *prometheus.Registry
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		client:     opts.Client,
		store:      opts.Store,
		registry:   opts.Registry,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "mustx",
		Usage:   "Browse, cache and export MustApp lists",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.configure,
		After:    r.close,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, fetchCommand, listsCommand, exportCommand, cacheCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file (when present), applies MUSTX_* overrides and validates the result.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := loadConfig(cmd.String("config"), r.logger)
		if err != nil {
			return ctx, err
		}
		if err := shared.ApplyEnv(config); err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	if err := shared.SetLogLevel(r.logger, level); err != nil {
		return ctx, err
	}

	return ctx, r.config.Validate()
}

func loadConfig(path string, logger *log.Logger) (*shared.Config, error) {
	config, err := shared.LoadConfig(path)
	if errors.Is(err, shared.ErrMissingConfig) {
		logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", path)
	return config, nil
}

// Loader returns the cached snapshot loader, building the client, fetch engine and store on first use.
func (r *Runner) Loader(ctx context.Context) (*repositories.CachedLoader, error) {
	if r.loader != nil {
		return r.loader, nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}

	if r.client == nil {
		httpClient := r.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: r.config.MustApp.Timeout.Duration}
		}
		r.client = services.NewMustAppClient(services.MustAppOpts{
			BaseURL:    r.config.MustApp.BaseURL,
			HTTPClient: httpClient,
			UserAgent:  r.config.MustApp.UserAgent,
			Metrics:    services.NewMetrics(r.registry),
		})
	}

	if r.store == nil {
		store, err := repositories.NewStore(ctx, r.config, r.registry)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	engine := tasks.NewFetchEngine(r.client, tasks.FetchOpts{
		BatchSize:    r.config.MustApp.BatchSize,
		BatchDelay:   r.config.MustApp.BatchDelay.Duration,
		PageFallback: r.config.MustApp.PageFallback,
		Version:      r.config.Cache.Version,
		Logger:       shared.WithLogger(r.logger, "component", "fetch"),
		Registerer:   r.registry,
		Now:          r.now,
	})
	r.loader = repositories.NewCachedLoader(r.store, engine, shared.WithLogger(r.logger, "component", "cache"))
	return r.loader, nil
}

// Store returns the snapshot store without building the fetch pipeline.
func (r *Runner) Store(ctx context.Context) (repositories.SnapshotStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}

	store, err := repositories.NewStore(ctx, r.config, r.registry)
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) close(context.Context, *cli.Command) error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
