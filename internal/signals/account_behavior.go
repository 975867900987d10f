package signals

import (
	"context"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/history"
)

// AccountBehaviorProvider scores the origin account's history: new and
// fraud-tainted accounts score risky, accounts that routinely move money
// through TRANSFER/CASH_OUT score trusted.
type AccountBehaviorProvider struct {
	history *history.Service
	weight  float64
}

// NewAccountBehaviorProvider creates the account behavior provider.
func NewAccountBehaviorProvider(hist *history.Service, weight float64) *AccountBehaviorProvider {
	return &AccountBehaviorProvider{history: hist, weight: weight}
}

// Name implements Provider.
func (p *AccountBehaviorProvider) Name() domain.Signal {
	return domain.SignalAccountBehavior
}

// Compute implements Provider. The assessment ladder is exclusive: the
// first matching condition decides the points.
//
//	no history                      +2  new/unknown account
//	fraud rate > 5%                 +2  past fraud detected
//	>= 5 prior TRANSFER/CASH_OUT    -2  trusted high-volume pattern
//	fewer than 3 transactions       +1  limited history
//	any fraud in history            +1  some fraud in history
//	otherwise                       -1  normal behavior
func (p *AccountBehaviorProvider) Compute(ctx context.Context, tx *domain.Transaction) (domain.SignalContribution, error) {
	summary, err := p.history.Summarize(ctx, tx.OriginID)
	if err != nil {
		return domain.SignalContribution{}, fmt.Errorf("failed to summarize history: %w", err)
	}

	var points float64
	var rationale string

	switch {
	case summary.Transactions == 0:
		points = 2
		rationale = "no transaction history: new/unknown account"
	case summary.FraudRate > 5:
		points = 2
		rationale = fmt.Sprintf("risky account: %.1f%% fraud rate in recent history", summary.FraudRate)
	case summary.HighRiskCount() >= 5:
		points = -2
		rationale = fmt.Sprintf("trusted account: %d prior TRANSFER/CASH_OUT transactions", summary.HighRiskCount())
	case summary.Transactions < 3:
		points = 1
		rationale = fmt.Sprintf("limited history: only %d prior transactions", summary.Transactions)
	case summary.FraudCount > 0:
		points = 1
		rationale = fmt.Sprintf("caution: %d fraudulent transactions in history", summary.FraudCount)
	default:
		points = -1
		rationale = "normal behavior: no fraud history"
	}

	return domain.SignalContribution{
		Signal:    domain.SignalAccountBehavior,
		Weight:    p.weight,
		RawScore:  rawScore(points, p.weight),
		Rationale: rationale,
	}, nil
}
