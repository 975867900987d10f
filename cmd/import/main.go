// Import tool for loading PaySim CSV data into the Kestrel store.
//
// Usage:
//   go run cmd/import/main.go -csv /path/to/paysim.csv
//
// The account-behavior signal scores against this history, so a fresh
// deployment usually imports a dataset slice before serving traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-finance/kestrel/internal/dataset"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

func main() {
	csvPath := flag.String("csv", "", "Path to PaySim CSV file")
	batchSize := flag.Int("batch", 500, "Rows per insert batch")
	limit := flag.Int("limit", 0, "Maximum rows to import (0 = all)")
	fraudOnly := flag.Bool("fraud-only", false, "Import only fraud rows")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for non-fraud rows (0.0-1.0)")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: import -csv /path/to/paysim.csv")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := domain.DefaultConfig()
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
	}
	if path := os.Getenv("KESTREL_SQLITE_PATH"); path != "" {
		cfg.Repository.SQLitePath = path
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	file, err := os.Open(*csvPath)
	if err != nil {
		slog.Error("failed to open CSV", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	defer file.Close()

	slog.Info("importing dataset",
		"path", *csvPath,
		"batch", *batchSize,
		"limit", *limit,
		"fraud_only", *fraudOnly,
		"sample", *sampleRate,
	)

	start := time.Now()
	stats, err := dataset.NewImporter(repo, nil).Import(context.Background(), file, dataset.Options{
		BatchSize:  *batchSize,
		Limit:      *limit,
		FraudOnly:  *fraudOnly,
		SampleRate: *sampleRate,
	})
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}

	duration := time.Since(start)
	fmt.Printf("\nImported %d of %d rows (%d skipped, %d fraud) in %v\n",
		stats.Imported, stats.Read, stats.Skipped, stats.Fraud, duration.Round(time.Millisecond))
	if duration.Seconds() > 0 {
		fmt.Printf("Throughput: %.0f rows/sec\n", float64(stats.Imported)/duration.Seconds())
	}
}
