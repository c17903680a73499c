// Command eval scores a system's answers against a golden dataset.
//
// Score two files:
//
//	go run ./cmd/eval run \
//	  --golden ./data/golden.json \
//	  --actual ./data/run-42.csv
//
// Keep golden datasets in the local library and score against them:
//
//	go run ./cmd/eval datasets import geography ./data/golden.xlsx
//	go run ./cmd/eval run --golden-dataset geography --actual ./data/run-42.csv \
//	  --format json --output report.json --fail-under 60
package main

import (
	"fmt"
	"os"

	"github.com/brunobiangulo/goldeneval/cmd/eval/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
