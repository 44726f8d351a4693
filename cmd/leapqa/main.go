// Package main provides the CLI for LeapQA data quality checks.
package main

import (
	"os"

	"github.com/leapstack-labs/leapqa/internal/cli"

	// Register database adapters
	_ "github.com/leapstack-labs/leapqa/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapqa/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapqa/pkg/adapters/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
