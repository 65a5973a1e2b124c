package cli

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/forgeo/forgeoagent/internal/config"
	"github.com/forgeo/forgeoagent/internal/logger"
	"github.com/forgeo/forgeoagent/internal/observability"
	"github.com/forgeo/forgeoagent/pkg/catalog"
	"github.com/forgeo/forgeoagent/pkg/keypool"
	"github.com/forgeo/forgeoagent/pkg/orchestrator"
	"github.com/forgeo/forgeoagent/pkg/provider"
	"github.com/forgeo/forgeoagent/pkg/transcript"
)

// app bundles the wired components a command needs. Commands build one,
// use it, and Close it on the way out.
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	pool         *keypool.Pool
	adapter      provider.Adapter
	transcripts  *transcript.Store
	catalog      *catalog.Catalog
	orchestrator *orchestrator.Orchestrator
	janitor      *keypool.Janitor
	watcher      *config.Watcher
}

// appOptions controls which optional components newApp starts.
type appOptions struct {
	startJanitor bool
	startWatcher bool
	serveMetrics bool
}

func newApp(opts appOptions) (*app, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, err
	}
	zl := log.Zerolog()

	for _, warn := range config.NewValidator().ValidateConfig(cfg) {
		zl.Warn().Err(warn).Msg("Config warning")
	}

	a := &app{cfg: cfg, log: log}

	a.pool = keypool.New(zl.With().Str("component", "keypool").Logger())
	if err := a.pool.Initialize(cfg.Provider.APIKeys); err != nil {
		a.Close()
		return nil, err
	}

	a.adapter, err = provider.NewAdapter(cfg.Provider.Name)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.transcripts, err = transcript.NewStore(cfg.Transcripts.Dir, zl.With().Str("component", "transcript").Logger())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.catalog, err = catalog.New(catalog.Config{
		Dir:         cfg.Catalog.Dir,
		Database:    cfg.Catalog.Database,
		Transcripts: a.transcripts,
		Logger:      zl.With().Str("component", "catalog").Logger(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orchestrator, err = orchestrator.New(orchestrator.Config{
		Pool:        a.pool,
		Adapter:     a.adapter,
		Transcripts: a.transcripts,
		Logger:      zl.With().Str("component", "orchestrator").Logger(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	if opts.startJanitor {
		a.janitor, err = keypool.NewJanitor(a.pool, keypool.JanitorConfig{
			SnapshotSpec: cfg.Janitor.SnapshotSpec,
			ResetSpec:    cfg.Janitor.ResetSpec,
		}, zl.With().Str("component", "janitor").Logger())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.janitor.Start()
	}

	if opts.startWatcher {
		a.watcher, err = config.NewWatcher(loader, func(next *config.Config) error {
			return a.pool.Initialize(next.Provider.APIKeys)
		}, zl.With().Str("component", "config").Logger())
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.watcher.Start(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.serveMetrics && cfg.Metrics.Enabled {
		a.serveMetrics(zl)
	}

	return a, nil
}

func (a *app) serveMetrics(zl zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())

	go func() {
		zl.Info().Str("listen", a.cfg.Metrics.Listen).Msg("Metrics endpoint started")
		if err := http.ListenAndServe(a.cfg.Metrics.Listen, mux); err != nil {
			zl.Error().Err(err).Msg("Metrics endpoint stopped")
		}
	}()
}

// Close releases everything newApp started, in reverse order.
func (a *app) Close() {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			fmt.Println("warning: failed to stop config watcher:", err)
		}
	}
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.catalog != nil {
		a.catalog.Close()
	}
	if a.log != nil {
		a.log.Close()
	}
}
