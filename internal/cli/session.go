package cli

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kittynode/kittynode/internal/config"
	"github.com/kittynode/kittynode/internal/docker"
	"github.com/kittynode/kittynode/internal/lifecycle"
	"github.com/kittynode/kittynode/internal/metrics"
	"github.com/kittynode/kittynode/internal/model"
	"github.com/kittynode/kittynode/internal/paths"
)

// Compile-time check that the Docker adapter satisfies the lifecycle runtime.
var _ lifecycle.Runtime = (*docker.Client)(nil)

// session is the per-invocation state shared by subcommands: the loaded
// config, the logger and the metrics registry.
type session struct {
	cfg     config.Config
	dataDir string
	log     *zap.Logger
	metrics *metrics.Metrics
}

// current is set by the root command's PersistentPreRunE.
var current *session

// runtimeFactory connects to the container runtime. Tests replace it.
var runtimeFactory = func(ctx context.Context, s *session) (lifecycle.Runtime, func(), error) {
	c, err := docker.NewClient(docker.Options{Host: s.cfg.DockerHost, Logger: s.log, Metrics: s.metrics})
	if err != nil {
		return nil, nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// dockerRunning probes the daemon for docker-status. Tests replace it.
var dockerRunning = docker.IsRunning

// startSession resolves the data directory, loads the config and builds
// the logger. Log output goes to w.
func startSession(w io.Writer) error {
	dataDir, err := paths.DataDir()
	if err != nil {
		return model.NewError(model.KindFilesystem, "resolve data directory", "", err)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return err
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}

	level, err := cfg.Level()
	if err != nil {
		return model.NewError(model.KindInvalidConfig, "parse log level", cfg.LogLevel, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	log := newLogger(w, level)
	log.Debug("session started",
		zap.String("data_dir", dataDir),
		zap.String("docker_host", cfg.DockerHost),
		zap.Stringer("level", level))

	current = &session{
		cfg:     cfg,
		dataDir: dataDir,
		log:     log,
		metrics: metrics.New(),
	}
	return nil
}

// newLogger builds a console logger in zap's development format.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// endSession flushes the logger and writes the metrics textfile, if one
// is configured. It is a no-op when no session was started.
func endSession() {
	if current == nil {
		return
	}
	if path := current.cfg.MetricsFile; path != "" {
		if err := current.metrics.WriteTextfile(path); err != nil {
			current.log.Warn("failed to write metrics file", zap.String("path", path), zap.Error(err))
		}
	}
	_ = current.log.Sync()
	current = nil
}

// manager returns a lifecycle.Manager for the session. When withRuntime is
// false the manager has no runtime and only its registry and config
// methods may be called. The returned func releases the runtime.
func (s *session) manager(ctx context.Context, withRuntime bool) (*lifecycle.Manager, func(), error) {
	var rt lifecycle.Runtime
	release := func() {}
	if withRuntime {
		r, closeFn, err := runtimeFactory(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		rt, release = r, closeFn
	}

	m, err := lifecycle.NewManager(rt, lifecycle.Options{DataDir: s.dataDir, Logger: s.log, Metrics: s.metrics})
	if err != nil {
		release()
		return nil, nil, err
	}
	return m, release, nil
}

// sessionManager is a shorthand for current.manager.
func sessionManager(ctx context.Context, withRuntime bool) (*lifecycle.Manager, func(), error) {
	if current == nil {
		return nil, nil, model.NewCLIError(model.ExitGeneralError, "session not initialized")
	}
	return current.manager(ctx, withRuntime)
}
