package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rlch/lineage"
	"github.com/rlch/lineage/graph"
	"github.com/rlch/lineage/render"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// session holds what every command needs: the loaded config, a logger and
// an open store with an engine and traverser over it.
type session struct {
	cfg       *lineage.Config
	logger    *zap.Logger
	store     lineage.Store
	engine    *graph.Engine
	traverser *graph.Traverser
}

func openSession(cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg.Log.Level, cmd.Bool("debug"))
	if err != nil {
		return nil, err
	}

	logger.Debug("opening store", zap.String("backend", cfg.Store.Backend()))

	store, err := lineage.NewStore(&cfg.Store)
	if err != nil {
		_ = logger.Sync()

		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend(), err)
	}

	opts := []graph.Option{graph.WithLogger(logger), graph.WithConfig(cfg.Graph)}

	return &session{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    graph.NewEngine(store, opts...),
		traverser: graph.NewTraverser(store, opts...),
	}, nil
}

func (s *session) Close() error {
	_ = s.logger.Sync()

	return s.store.Close()
}

// loadConfig reads the named file, or the nearest .lineage.yaml when path is
// empty. A missing file means defaults.
func loadConfig(path string) (*lineage.Config, error) {
	if path != "" {
		cfg, err := lineage.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}

		return cfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}

	cfg, err := lineage.LoadConfig(cwd)
	if errors.Is(err, lineage.ErrConfigNotFound) {
		return lineage.DefaultConfig(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// buildLogger writes development-style logs to stderr so stdout stays free
// for command output.
func buildLogger(level string, debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	if debug {
		lvl = zapcore.DebugLevel
	}

	config.Level = zap.NewAtomicLevelAt(lvl)

	return config.Build()
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func formatter(cmd *cli.Command) render.Formatter { //nolint:ireturn
	name := render.FormatText
	if cmd.Bool("json") {
		name = render.FormatJSON
	}

	return render.NewFormatter(name, output(cmd))
}
