package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:               "tx-001",
			Step:             42,
			Type:             domain.TypeCashOut,
			OriginID:         "C1305486145",
			OriginOldBalance: 181.0,
			OriginNewBalance: 0.0,
			DestID:           "C553264065",
			DestOldBalance:   0.0,
			DestNewBalance:   181.0,
			Amount:           181.0,
			IsFraud:          true,
			Timestamp:        time.Now().UTC(),
			CreatedAt:        time.Now().UTC(),
		}

		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}

		if retrieved.ID != tx.ID {
			t.Errorf("expected ID %s, got %s", tx.ID, retrieved.ID)
		}
		if retrieved.Type != domain.TypeCashOut {
			t.Errorf("expected type CASH_OUT, got %s", retrieved.Type)
		}
		if retrieved.Amount != tx.Amount {
			t.Errorf("expected Amount %.2f, got %.2f", tx.Amount, retrieved.Amount)
		}
		if !retrieved.IsFraud {
			t.Error("expected IsFraud to round-trip")
		}
	})

	t.Run("GetTransactionNotFound", func(t *testing.T) {
		_, err := repo.GetTransaction(ctx, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveTransactionRequiresID", func(t *testing.T) {
		err := repo.SaveTransaction(ctx, &domain.Transaction{Type: domain.TypePayment})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestGetTransactionsByOrigin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		tx := &domain.Transaction{
			ID:        fmt.Sprintf("tx-%03d", i),
			Step:      i,
			Type:      domain.TypeTransfer,
			OriginID:  "C100",
			DestID:    "C200",
			Amount:    float64(100 * (i + 1)),
			IsFraud:   i == 14,
			Timestamp: time.Now().UTC(),
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
	}

	t.Run("NewestFirstWithLimit", func(t *testing.T) {
		txs, err := repo.GetTransactionsByOrigin(ctx, "C100", 10)
		if err != nil {
			t.Fatalf("GetTransactionsByOrigin failed: %v", err)
		}
		if len(txs) != 10 {
			t.Fatalf("got %d transactions, want 10", len(txs))
		}
		if txs[0].Step != 14 {
			t.Errorf("first step = %d, want 14 (newest first)", txs[0].Step)
		}
		if !txs[0].IsFraud {
			t.Error("expected newest transaction to be the fraudulent one")
		}
		for i := 1; i < len(txs); i++ {
			if txs[i].Step > txs[i-1].Step {
				t.Fatalf("steps not descending at %d", i)
			}
		}
	})

	t.Run("UnknownOriginIsEmpty", func(t *testing.T) {
		txs, err := repo.GetTransactionsByOrigin(ctx, "C404", 10)
		if err != nil {
			t.Fatalf("GetTransactionsByOrigin failed: %v", err)
		}
		if len(txs) != 0 {
			t.Errorf("got %d transactions, want 0", len(txs))
		}
	})
}

func TestSaveTransactionsBatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	batch := make([]*domain.Transaction, 50)
	for i := range batch {
		batch[i] = &domain.Transaction{
			ID:        fmt.Sprintf("batch-%03d", i),
			Step:      i,
			Type:      domain.TypePayment,
			OriginID:  "C300",
			DestID:    "M100",
			Amount:    50.0,
			Timestamp: time.Now().UTC(),
			CreatedAt: time.Now().UTC(),
		}
	}

	if err := repo.SaveTransactions(ctx, batch); err != nil {
		t.Fatalf("SaveTransactions failed: %v", err)
	}

	txs, err := repo.GetTransactionsByOrigin(ctx, "C300", 100)
	if err != nil {
		t.Fatalf("GetTransactionsByOrigin failed: %v", err)
	}
	if len(txs) != 50 {
		t.Errorf("got %d transactions, want 50", len(txs))
	}
}

func TestSaveTransactionsBatchRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	batch := []*domain.Transaction{
		{ID: "ok-1", Type: domain.TypePayment, OriginID: "C400", DestID: "M1",
			Timestamp: time.Now().UTC(), CreatedAt: time.Now().UTC()},
		{ID: "", Type: domain.TypePayment, OriginID: "C400", DestID: "M1"},
	}

	if err := repo.SaveTransactions(ctx, batch); err == nil {
		t.Fatal("expected error for batch containing invalid record")
	}

	if _, err := repo.GetTransaction(ctx, "ok-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected rollback to discard ok-1, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: "postgres"}
	lite := &SQLRepository{driver: "sqlite"}

	query := "INSERT INTO t (a, b, c) VALUES (?, ?, ?)"

	if got := pg.rebind(query); got != "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)" {
		t.Errorf("postgres rebind = %q", got)
	}
	if got := lite.rebind(query); got != query {
		t.Errorf("sqlite rebind = %q, want unchanged", got)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
