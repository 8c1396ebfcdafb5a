package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/dataset"
	"github.com/cyclopcam/recycle/pkg/labelcheck"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	def := labelcheck.DefaultOptions()
	parser := argparse.NewParser("labelcheck", "Validate the labels of a split dataset, and draw boxes on a random sample of images")
	splitDir := parser.String("d", "dataset", &argparse.Options{Help: "Split dataset directory (containing data.yaml)", Required: true})
	split := parser.Selector("", "split", []string{"train", "val", "test"}, &argparse.Options{Help: "Which split to check", Default: "train"})
	samples := parser.Int("n", "samples", &argparse.Options{Help: "Number of images to annotate", Default: def.Samples})
	outDir := parser.String("o", "output", &argparse.Options{Help: "Directory for annotated samples", Default: "labelcheck"})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Random seed for choosing samples", Default: int(def.Seed)})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	manifest, err := dataset.LoadManifest(filepath.Join(*splitDir, dataset.ManifestFilename))
	if err != nil {
		logger.Errorf("Failed to load manifest: %v", err)
		os.Exit(1)
	}

	opts := def
	opts.Samples = *samples
	opts.Seed = int64(*seed)
	opts.OutDir = *outDir
	res, err := labelcheck.CheckSplit(logger, *splitDir, *split, manifest.Names, opts)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	for _, issue := range res.Issues {
		fmt.Println(issue.String())
	}
	fmt.Printf("\n%v images in '%v'\n", res.Images, res.Split)
	for _, kind := range []labelcheck.IssueKind{labelcheck.IssueMissingLabel, labelcheck.IssueMalformed, labelcheck.IssueInvalidClass, labelcheck.IssueOutOfBounds, labelcheck.IssueDuplicate} {
		fmt.Printf("  %-14v %v\n", kind, res.Count(kind))
	}
	fmt.Printf("%v annotated samples written to %v\n", len(res.Annotated), *outDir)
	if len(res.Issues) != 0 {
		os.Exit(2)
	}
}
