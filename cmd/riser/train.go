package main

import (
	"log/slog"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/config"
	"github.com/charlesxu90/riser/costfuncs"
	"github.com/charlesxu90/riser/metrics"
	"github.com/charlesxu90/riser/nets"
	"github.com/charlesxu90/riser/optimizers"
)

var trainFlags struct {
	expDir     string
	dataDir    string
	configFile string
	checkpoint string
	startEpoch int
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the combined-batch training loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrain()
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainFlags.expDir, "exp-dir", "", "experiment directory for checkpoints and metrics")
	trainCmd.Flags().StringVar(&trainFlags.dataDir, "data-dir", "", "root of the bucketed dataset")
	trainCmd.Flags().StringVar(&trainFlags.configFile, "config", "config.yaml", "path to the YAML config")
	trainCmd.Flags().StringVar(&trainFlags.checkpoint, "checkpoint", "", "checkpoint file to resume from, relative to exp-dir")
	trainCmd.Flags().IntVar(&trainFlags.startEpoch, "start-epoch", 0, "first epoch to run; must be > 0 when resuming")
	_ = trainCmd.MarkFlagRequired("exp-dir")
	_ = trainCmd.MarkFlagRequired("data-dir")

	rootCmd.AddCommand(trainCmd)
}

func runTrain() error {
	logger := slog.Default()
	logger.Info("experiment", "dir", trainFlags.expDir, "data", trainFlags.dataDir,
		"config", trainFlags.configFile, "checkpoint", trainFlags.checkpoint)

	cfg, err := config.Load(trainFlags.configFile)
	if err != nil {
		return err
	}

	train, err := buildCombined(cfg, "train", true)
	if err != nil {
		return err
	}
	val, err := buildCombined(cfg, "val", false)
	if err != nil {
		return err
	}

	model, err := nets.New(cfg)
	if err != nil {
		return err
	}
	if cfg.Model == "tcn" {
		logger.Info("receptive field", "values", nets.ReceptiveField(cfg.TCN.Kernel, cfg.TCN.NLayers))
	}

	var resume riser.State
	if trainFlags.checkpoint != "" {
		resume, err = riser.LoadState(filepath.Join(trainFlags.expDir, trainFlags.checkpoint))
		if err != nil {
			return err
		}
	}

	store, err := riser.NewDirStore(trainFlags.expDir)
	if err != nil {
		return err
	}

	rec, err := metrics.NewCSVRecorder(filepath.Join(trainFlags.expDir, "metrics.csv"))
	if err != nil {
		return err
	}
	defer rec.Close()

	summary, err := riser.Run(riser.RunArgs{
		Train:       train,
		Val:         val,
		Model:       model,
		Cost:        costfuncs.CrossEntropy(),
		Opt:         optimizers.Adam(model.Parameters(), cfg.LearningRate),
		Epochs:      cfg.NEpochs,
		StartEpoch:  trainFlags.startEpoch,
		Resume:      resume,
		Checkpoints: store,
		ExpID:       filepath.Base(trainFlags.expDir),
		LogEvery:    cfg.LogEvery,
		Rec:         rec,
		Seed:        cfg.Seed,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("best model", "epoch", summary.BestEpoch, "accuracy", summary.BestAccuracy)
	return nil
}

func buildCombined(cfg *config.Config, split string, shuffle bool) (*riser.CombinedStream, error) {
	streams, err := riser.NewBucketStreams(
		trainFlags.dataDir, split, cfg.Buckets, cfg.BatchSize, shuffle, cfg.Seed)
	if err != nil {
		return nil, errors.Wrapf(err, "Couldn't build %s streams", split)
	}
	return riser.NewCombinedStream(streams)
}
