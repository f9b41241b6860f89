package main

import (
	"log/slog"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
	"github.com/charlesxu90/riser/costfuncs"
	"github.com/charlesxu90/riser/nets"
)

var evalFlags struct {
	expDir     string
	dataDir    string
	configFile string
	checkpoint string
	split      string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Report accuracy of a saved checkpoint on the test split",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate()
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalFlags.expDir, "exp-dir", "", "experiment directory holding the checkpoint")
	evaluateCmd.Flags().StringVar(&evalFlags.dataDir, "data-dir", "", "root of the bucketed dataset")
	evaluateCmd.Flags().StringVar(&evalFlags.configFile, "config", "config.yaml", "path to the YAML config")
	evaluateCmd.Flags().StringVar(&evalFlags.checkpoint, "checkpoint", "", "checkpoint file, relative to exp-dir")
	evaluateCmd.Flags().StringVar(&evalFlags.split, "split", "test", "dataset split to evaluate")
	_ = evaluateCmd.MarkFlagRequired("exp-dir")
	_ = evaluateCmd.MarkFlagRequired("data-dir")
	_ = evaluateCmd.MarkFlagRequired("checkpoint")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate() error {
	logger := slog.Default()

	cfg, err := config.Load(evalFlags.configFile)
	if err != nil {
		return err
	}

	streams, err := riser.NewBucketStreams(
		evalFlags.dataDir, evalFlags.split, cfg.Buckets, cfg.BatchSize, false, cfg.Seed)
	if err != nil {
		return errors.Wrapf(err, "Couldn't build %s streams", evalFlags.split)
	}
	combined, err := riser.NewCombinedStream(streams)
	if err != nil {
		return err
	}

	model, err := nets.New(cfg)
	if err != nil {
		return err
	}

	state, err := riser.LoadState(filepath.Join(evalFlags.expDir, evalFlags.checkpoint))
	if err != nil {
		return err
	}
	if err = model.SetState(state); err != nil {
		return errors.Wrapf(err, "Checkpoint does not fit the configured model")
	}

	loss, acc, err := riser.ValidateEpoch(combined, model, costfuncs.CrossEntropy(), riser.EpochOptions{
		Logger: logger,
	})
	if err != nil {
		return err
	}

	logger.Info("evaluation", "split", evalFlags.split, "accuracy", acc, "loss", loss)
	return nil
}
