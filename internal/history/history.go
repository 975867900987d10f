// Package history builds per-account transaction history summaries.
package history

import (
	"context"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Service derives account history summaries from stored transactions.
// Summaries are cached so repeated classifications of the same origin
// account do not re-scan the repository.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	depth int
}

// NewService creates a new history service. depth bounds how many of the
// account's most recent transactions feed the summary.
func NewService(repo domain.Repository, cache domain.Cache, depth int) *Service {
	if depth <= 0 {
		depth = 10
	}
	return &Service{
		repo:  repo,
		cache: cache,
		depth: depth,
	}
}

// Summarize returns the history summary for an origin account, building
// and caching it on a miss. An account with no stored transactions yields
// a summary with Transactions == 0, not an error.
func (s *Service) Summarize(ctx context.Context, originID string) (*domain.HistorySummary, error) {
	if originID == "" {
		return nil, fmt.Errorf("originID is required")
	}

	if s.cache != nil {
		if summary, err := s.cache.GetHistorySummary(ctx, originID); err == nil && summary != nil {
			return summary, nil
		}
	}

	summary, err := s.build(ctx, originID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// Best effort: a failed cache write only costs a rebuild later.
		_ = s.cache.SetHistorySummary(ctx, originID, summary, 0)
	}

	return summary, nil
}

// Invalidate drops the cached summary for an account. Called after new
// transactions for the account are stored.
func (s *Service) Invalidate(ctx context.Context, originID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, historyKey(originID))
}

// build scans the account's recent transactions and aggregates them.
func (s *Service) build(ctx context.Context, originID string) (*domain.HistorySummary, error) {
	txs, err := s.repo.GetTransactionsByOrigin(ctx, originID, s.depth)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for %s: %w", originID, err)
	}

	summary := &domain.HistorySummary{OriginID: originID}
	for _, tx := range txs {
		summary.Transactions++
		if tx.IsFraud {
			summary.FraudCount++
		}
		switch tx.Type {
		case domain.TypeTransfer:
			summary.TransferCount++
		case domain.TypeCashOut:
			summary.CashOutCount++
		}
		summary.AvgAmount += tx.Amount
		if tx.Amount > summary.MaxAmount {
			summary.MaxAmount = tx.Amount
		}
	}
	if summary.Transactions > 0 {
		summary.AvgAmount /= float64(summary.Transactions)
		summary.FraudRate = float64(summary.FraudCount) / float64(summary.Transactions) * 100
	}

	return summary, nil
}

func historyKey(originID string) string {
	return "history:" + originID
}
