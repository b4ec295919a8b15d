// Command train_model fits the passenger survival classifier and writes
// predictions for the test file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"titanicml/config"
	"titanicml/logging"
	"titanicml/pipeline"
)

const defaultConfigPath = "config.yaml"

type options struct {
	configPath string
	train      string
	test       string
	output     string
	store      string
	logLevel   string
	seed       int64
	fraction   float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&options{})
}

func buildRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "train_model",
		Short:         "Train the survival classifier and write test predictions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, opts)
			if err != nil {
				reportError(cmd.ErrOrStderr(), err)
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := pipeline.New(cfg, logger.Named("pipeline")).Run(ctx)
			if err != nil {
				reportError(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d predictions to %s (validation accuracy %.4f)\n",
				len(res.Predictions), res.OutputPath, res.ValidationMetrics.Accuracy)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default config.yaml when present)")
	flags.StringVar(&opts.train, "train", "", "training file path")
	flags.StringVar(&opts.test, "test", "", "test file path")
	flags.StringVar(&opts.output, "output", "", "predictions output path")
	flags.StringVar(&opts.store, "store", "", "SQLite run store path")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.Int64Var(&opts.seed, "seed", 0, "split seed")
	flags.Float64Var(&opts.fraction, "validation-fraction", 0, "fraction of training rows held out for validation")

	cmd.AddCommand(newWatchCmd(opts))
	return cmd
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, opts *options) (config.Config, *zap.SugaredLogger, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, errors.Wrap(err, "invalid config")
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if opts.train != "" {
		cfg.Input.TrainPath = opts.train
	}
	if opts.test != "" {
		cfg.Input.TestPath = opts.test
	}
	if opts.output != "" {
		cfg.Output.Path = opts.output
	}
	if opts.store != "" {
		cfg.Store.Path = opts.store
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("seed") {
		cfg.Split.Seed = opts.seed
	}
	if flags.Changed("validation-fraction") {
		cfg.Split.ValidationFraction = opts.fraction
	}
	return cfg, nil
}

// reportError prints the failing stage, the error and any hints.
func reportError(w io.Writer, err error) {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		fmt.Fprintf(w, "train_model: %s stage failed: %v\n", stageErr.Stage, stageErr.Err)
	} else {
		fmt.Fprintf(w, "train_model: %v\n", err)
	}
	if hints := errors.FlattenHints(err); hints != "" {
		fmt.Fprintf(w, "hint: %s\n", hints)
	}
}

func runOnce(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) {
	res, err := pipeline.New(cfg, logger.Named("pipeline")).Run(ctx)
	if err != nil {
		logger.Errorw("run failed", "error", err, "hint", errors.FlattenHints(err))
		return
	}
	logger.Infow("run finished", "run_id", res.RunID, "output", res.OutputPath,
		"validation_accuracy", res.ValidationMetrics.Accuracy)
}
