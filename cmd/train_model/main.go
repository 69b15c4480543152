// Command train_model fits the candidate classifiers on the heart disease
// dataset, selects the best by roc_auc, and writes the model and pipeline
// artifacts used by the serving binary.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"cardioml/config"
	"cardioml/dataset"
	"cardioml/db"
	"cardioml/logging"
	"cardioml/ml"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dataPath := flag.String("data", "", "override data.csv_path")
	outDir := flag.String("out", "", "override model.dir")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	if *dataPath != "" {
		cfg.Data.CSVPath = *dataPath
	}
	if *outDir != "" {
		cfg.Model.Dir = *outDir
	}

	logger := logging.Init(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()
	if err != nil {
		logger.Warnw("config not loaded, using defaults", "path", *configPath, "error", err)
	}

	rows, labels, err := dataset.Load(cfg.Data.CSVPath)
	if err != nil {
		logger.Fatalw("load dataset", "path", cfg.Data.CSVPath, "error", err)
	}
	logger.Infow("dataset loaded", "rows", len(rows))

	cleaner := dataset.NewCleaner()
	rows, labels = cleaner.Clean(rows, labels)
	stats := cleaner.Stats()
	logger.Infow("dataset cleaned", "passed", stats.Passed, "rejected", stats.Rejected, "issues", stats.Issues)

	trainRows, trainY, testRows, testY, err := dataset.TrainTestSplitRows(rows, labels, cfg.Data.TestSize, cfg.Data.Seed)
	if err != nil {
		logger.Fatalw("train/test split", "error", err)
	}

	// Pipeline statistics come from the training partition only.
	preprocessor := ml.NewPreprocessor()
	trainX, err := preprocessor.FitTransform(trainRows)
	if err != nil {
		logger.Fatalw("fit pipeline", "error", err)
	}
	testX, err := preprocessor.Transform(testRows)
	if err != nil {
		logger.Fatalw("transform test partition", "error", err)
	}

	trainer := ml.NewTrainer(cfg.Model.CVFolds, cfg.Data.Seed, logger)
	trainer.Register(ml.ModelLogisticRegression, func() ml.Model {
		return ml.NewLogisticRegression()
	})
	trainer.Register(ml.ModelRandomForest, func() ml.Model {
		return ml.NewRandomForest(100, 10, cfg.Data.Seed)
	})

	if err := trainer.Run(trainX, trainY, testX, testY); err != nil {
		logger.Fatalw("training run failed", "error", err)
	}

	best, err := trainer.SelectBest(cfg.Model.SelectionMetric)
	if err != nil {
		logger.Fatalw("model selection failed", "metric", cfg.Model.SelectionMetric, "error", err)
	}
	logger.Infow("best model selected", "model", best.Name, "metric", cfg.Model.SelectionMetric, "value", best.Metrics[cfg.Model.SelectionMetric])

	modelPath := filepath.Join(cfg.Model.Dir, "model.json")
	pipelinePath := filepath.Join(cfg.Model.Dir, "pipeline.json")
	if err := trainer.SaveModel(best.Model, modelPath); err != nil {
		logger.Fatalw("save model", "path", modelPath, "error", err)
	}
	if err := preprocessor.Save(pipelinePath); err != nil {
		logger.Fatalw("save pipeline", "path", pipelinePath, "error", err)
	}
	logger.Infow("artifacts written", "model", modelPath, "pipeline", pipelinePath)

	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Warnw("training log not recorded, database unavailable", "error", err)
		os.Exit(0)
	}
	defer db.Close()

	for _, result := range trainer.Results() {
		selected := result.Name == best.Name
		if err := db.SaveTrainingResult(result.Name, result.Metrics, len(trainX), selected); err != nil {
			logger.Warnw("record training result", "model", result.Name, "error", err)
		}
	}
}
