package cli

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/embody-dev/embody/internal/agent"
	"github.com/embody-dev/embody/internal/config"
	"github.com/embody-dev/embody/internal/log"
	"github.com/embody-dev/embody/internal/logging"
	"github.com/embody-dev/embody/internal/orchestrator"
	"github.com/embody-dev/embody/internal/session"
	"github.com/embody-dev/embody/internal/tokens"
)

const indexFile = "index.db"

// app is everything one command invocation needs, built from config.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *session.Store
	index   *session.Index
	metrics *orchestrator.Metrics
	orch    *orchestrator.Orchestrator
}

func openApp() (*app, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return nil, err
	}

	sessionsDir := projectPath(cfg.SessionsDir)
	store, err := session.NewStore(sessionsDir, logger)
	if err != nil {
		return nil, err
	}

	// The index is derived data; commands still work without it.
	index, err := session.OpenIndex(filepath.Join(sessionsDir, indexFile))
	if err != nil {
		logger.Warn("session index unavailable", zap.Error(err))
		index = nil
	}

	loader := &agent.Loader{
		Dir:      projectPath(cfg.ProfilesDir),
		Fallback: agent.BuiltinProfile(cfg.Agent.Model, cfg.Agent.Timeout),
	}
	pool := agent.NewPool(agent.PoolConfig{
		TTL:        cfg.PoolTTL(),
		MaxHandles: cfg.Pool.MaxHandles,
		Build:      agent.ProfileBuilder(loader, cfg.Profile),
	})
	metrics := orchestrator.NewMetrics()

	orch := orchestrator.New(orchestrator.Options{
		Store:   store,
		Index:   index,
		Journal: log.NewJournal(sessionsDir),
		Executor: &agent.ClaudeExecutor{
			Command: cfg.Agent.Command,
			Dir:     rootDir,
			Logger:  logger,
		},
		Pool:        pool,
		Extractor:   tokens.NewExtractor(cfg.Extraction.MaxFiles, cfg.Extraction.MaxFileBytes, cfg.Extraction.MaxEntries, logger),
		Exploration: cfg.Exploration,
		OpTimeout:   cfg.AgentTimeout(),
		Metrics:     metrics,
		Logger:      logger,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		index:   index,
		metrics: metrics,
		orch:    orch,
	}, nil
}

// close flushes metrics and releases the index. Errors are logged only.
func (a *app) close() {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.metrics.WriteTextfile(projectPath(path)); err != nil {
			a.logger.Warn("writing metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("closing session index", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// projectPath resolves p against --root unless it is absolute.
func projectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootDir, p)
}

func requireIndex(a *app) error {
	if a.index == nil {
		return fmt.Errorf("session index is unavailable; see the log for the cause")
	}
	return nil
}
