// Package dataset streams PaySim CSV exports into the transaction store.
// Rows are parsed by header name rather than position, so column order in
// the export does not matter.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/observability"
)

// Columns the importer requires in the CSV header.
var requiredColumns = []string{
	"step", "type", "amount",
	"nameorig", "oldbalanceorg", "newbalanceorig",
	"namedest", "oldbalancedest", "newbalancedest",
	"isfraud",
}

var ErrMissingColumn = errors.New("dataset: missing column")

// Options control how an import run behaves.
type Options struct {
	// BatchSize is the number of rows per insert transaction.
	// Defaults to 500.
	BatchSize int

	// Limit stops the import after this many accepted rows. Zero means
	// no limit.
	Limit int

	// FraudOnly keeps only rows with isFraud=1.
	FraudOnly bool

	// SampleRate keeps roughly this fraction of non-fraud rows
	// (0.0-1.0]. Fraud rows are always kept. Defaults to 1.0.
	SampleRate float64
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.SampleRate <= 0 || o.SampleRate > 1.0 {
		o.SampleRate = 1.0
	}
}

// Stats summarizes one import run.
type Stats struct {
	Read     int
	Imported int
	Skipped  int
	Fraud    int
}

// Importer loads PaySim rows into a repository in batches.
type Importer struct {
	repo    domain.Repository
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewImporter(repo domain.Repository, metrics *observability.Metrics) *Importer {
	return &Importer{
		repo:    repo,
		metrics: metrics,
		logger:  slog.Default().With("component", "dataset"),
	}
}

// Import reads CSV rows from r and persists them. Malformed rows are
// skipped and counted, never fatal. The reader is consumed fully unless
// opts.Limit cuts the run short.
func (i *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*Stats, error) {
	opts.applyDefaults()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	batch := make([]*domain.Transaction, 0, opts.BatchSize)
	sampleCounter := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := i.repo.SaveTransactions(ctx, batch); err != nil {
			return fmt.Errorf("save batch of %d: %w", len(batch), err)
		}
		stats.Imported += len(batch)
		if i.metrics != nil {
			i.metrics.AddImported(len(batch))
		}
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Skipped++
			continue
		}

		stats.Read++

		tx, err := parseRow(record, cols)
		if err != nil {
			stats.Skipped++
			continue
		}

		if tx.IsFraud {
			stats.Fraud++
		} else {
			if opts.FraudOnly {
				stats.Skipped++
				continue
			}
			if opts.SampleRate < 1.0 {
				sampleCounter++
				if float64(sampleCounter%100)/100.0 >= opts.SampleRate {
					stats.Skipped++
					continue
				}
			}
		}

		batch = append(batch, tx)
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}

		if opts.Limit > 0 && stats.Imported+len(batch) >= opts.Limit {
			break
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	i.logger.Info("import complete",
		"read", stats.Read,
		"imported", stats.Imported,
		"skipped", stats.Skipped,
		"fraud", stats.Fraud,
	)

	return stats, nil
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int) (*domain.Transaction, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	txType, err := domain.ParseTxType(field("type"))
	if err != nil {
		return nil, err
	}

	step, err := strconv.Atoi(field("step"))
	if err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	amount, err := strconv.ParseFloat(field("amount"), 64)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	parseBalance := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	oldOrig, err := parseBalance("oldbalanceorg")
	if err != nil {
		return nil, err
	}
	newOrig, err := parseBalance("newbalanceorig")
	if err != nil {
		return nil, err
	}
	oldDest, err := parseBalance("oldbalancedest")
	if err != nil {
		return nil, err
	}
	newDest, err := parseBalance("newbalancedest")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &domain.Transaction{
		ID:               uuid.New().String(),
		Step:             step,
		Type:             txType,
		OriginID:         field("nameorig"),
		OriginOldBalance: oldOrig,
		OriginNewBalance: newOrig,
		DestID:           field("namedest"),
		DestOldBalance:   oldDest,
		DestNewBalance:   newDest,
		Amount:           amount,
		Timestamp:        now,
		CreatedAt:        now,
		IsFraud:          field("isfraud") == "1",
	}, nil
}
