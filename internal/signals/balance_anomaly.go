package signals

import (
	"context"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// BalanceAnomalyProvider scores how far the transaction amount exceeds
// the origin account's pre-transaction balance. A weak signal on its
// own: amounts above balance appear in roughly 15% of legitimate mobile
// money transactions, where accounts can carry credit lines.
type BalanceAnomalyProvider struct {
	weight float64
}

// NewBalanceAnomalyProvider creates the balance anomaly provider.
func NewBalanceAnomalyProvider(weight float64) *BalanceAnomalyProvider {
	return &BalanceAnomalyProvider{weight: weight}
}

// Name implements Provider.
func (p *BalanceAnomalyProvider) Name() domain.Signal {
	return domain.SignalBalanceAnomaly
}

// Compute implements Provider.
//
//	ratio > 2.0   +2   severe anomaly
//	ratio > 1.5   +1   moderate anomaly
//	ratio > 1.0   +0.5 mild anomaly
//	otherwise      0   within balance
//
// A zero or negative pre-transaction balance means no assessment is
// possible, which scores 0 rather than failing.
func (p *BalanceAnomalyProvider) Compute(ctx context.Context, tx *domain.Transaction) (domain.SignalContribution, error) {
	if tx.OriginOldBalance <= 0 {
		return domain.SignalContribution{
			Signal:    domain.SignalBalanceAnomaly,
			Weight:    p.weight,
			RawScore:  0,
			Rationale: "no available balance data: cannot assess",
		}, nil
	}

	ratio := tx.Amount / tx.OriginOldBalance

	var points float64
	var rationale string

	switch {
	case ratio > 2.0:
		points = 2
		rationale = fmt.Sprintf("severe anomaly: amount is %.2fx available balance", ratio)
	case ratio > 1.5:
		points = 1
		rationale = fmt.Sprintf("moderate anomaly: amount is %.2fx available balance", ratio)
	case ratio > 1.0:
		points = 0.5
		rationale = fmt.Sprintf("mild anomaly: amount is %.2fx available balance", ratio)
	default:
		points = 0
		rationale = "amount within available balance"
	}

	return domain.SignalContribution{
		Signal:    domain.SignalBalanceAnomaly,
		Weight:    p.weight,
		RawScore:  rawScore(points, p.weight),
		Rationale: rationale,
	}, nil
}
