// Command trainer runs the offline training pipeline: it loads a labelled
// CSV dataset, trains the full classifier bank and saves the winning
// model, vectorizer and metrics into the artifact directory.
//
// Usage: go run ./cmd/trainer -data dataset.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dberest/veridict/internal/artifact"
	"github.com/dberest/veridict/internal/config"
	"github.com/dberest/veridict/internal/logging"
	"github.com/dberest/veridict/internal/train"
)

func main() {
	dataPath := flag.String("data", "", "path to the labelled CSV dataset (overrides config)")
	artifactDir := flag.String("artifacts", "", "artifact output directory (overrides config)")
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("VERIDICT_CONFIG", *configPath)
	}
	cfg := config.Load()
	if *dataPath == "" {
		*dataPath = cfg.Training.DataPath
	}
	if *artifactDir != "" {
		cfg.Artifacts.Dir = *artifactDir
	}

	logger := logging.NewStdoutLogger("Trainer")

	store, err := artifact.NewStore(cfg.Artifacts.Dir, logger)
	if err != nil {
		log.Fatalf("artifact store: %v", err)
	}

	report, err := train.NewTrainer(cfg.Training, store, logger).Run(context.Background(), *dataPath)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	fmt.Printf("best model: %s (weighted F1 %.4f)\n", report.BestModel, report.BestF1)
	fmt.Printf("split sizes: train=%d val=%d test=%d\n", report.TrainSize, report.ValSize, report.TestSize)
	for name, m := range report.Models {
		if m.Error != "" {
			fmt.Printf("  %-20s failed: %s\n", name, m.Error)
			continue
		}
		fmt.Printf("  %-20s acc=%.4f f1=%.4f f1(fake)=%.4f\n", name, m.Accuracy, m.F1Score, m.F1FakeClass)
	}
}
