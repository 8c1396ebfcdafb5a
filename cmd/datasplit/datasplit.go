package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/dataset"
	"github.com/cyclopcam/recycle/pkg/nn"
)

func main() {
	def := dataset.DefaultConfig()
	parser := argparse.NewParser("datasplit", "Merge labeled material folders into one train/val/test dataset")
	baseDir := parser.String("i", "input", &argparse.Options{Help: "Directory of material folders (each with images/, labels/, classes.txt)", Required: true})
	outDir := parser.String("o", "output", &argparse.Options{Help: "Output dataset directory", Required: true})
	train := parser.Float("", "train", &argparse.Options{Help: "Train ratio", Default: def.TrainRatio})
	val := parser.Float("", "val", &argparse.Options{Help: "Validation ratio", Default: def.ValRatio})
	test := parser.Float("", "test", &argparse.Options{Help: "Test ratio", Default: def.TestRatio})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Random seed for the split", Default: int(def.Seed)})
	strict := parser.Flag("", "strict", &argparse.Options{Help: "Fail if a folder has a class that can't be mapped to the global list", Default: false})
	force := parser.Flag("f", "force", &argparse.Options{Help: "Replace the dataset already in the output directory", Default: false})
	classFile := parser.String("c", "classes", &argparse.Options{Help: "Global class list (one per line). Default is the union of all classes.txt files", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg := def
	cfg.TrainRatio = *train
	cfg.ValRatio = *val
	cfg.TestRatio = *test
	cfg.Seed = int64(*seed)
	cfg.StrictClasses = *strict
	cfg.Overwrite = *force
	if *classFile != "" {
		cfg.Classes, err = nn.LoadClassFile(*classFile)
		if err != nil {
			logger.Errorf("Failed to load class list: %v", err)
			os.Exit(1)
		}
	}

	report, err := dataset.Run(logger, *baseDir, *outDir, cfg)
	if errors.Is(err, dataset.ErrOutputExists) {
		logger.Errorf("%v. Use --force to replace it", err)
		os.Exit(1)
	} else if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	fmt.Printf("\nDataset written to %v\n", *outDir)
	fmt.Printf("Classes (%v): %v\n", len(report.Names), report.Names)
	for _, f := range report.Folders {
		if f.Skipped {
			fmt.Printf("  %-20v skipped\n", f.Name)
			continue
		}
		fmt.Printf("  %-20v", f.Name)
		for _, s := range dataset.AllSplits {
			fmt.Printf(" %v:%v", s, f.Counts[s].Processed)
		}
		fmt.Printf("\n")
	}
	total := 0
	for _, s := range dataset.AllSplits {
		fmt.Printf("%-6v %v images\n", s, report.Totals[s])
		total += report.Totals[s]
	}
	fmt.Printf("Total  %v images, %v warnings\n", total, len(report.Warnings))
}
