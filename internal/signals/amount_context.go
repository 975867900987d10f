package signals

import (
	"context"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// AmountContextProvider adds a small bump for unusually large absolute
// amounts. Deliberately the weakest signal: a large amount alone says
// little without behavioral corroboration.
type AmountContextProvider struct {
	large  *Predicate
	weight float64
}

// NewAmountContextProvider compiles the large-amount predicate and
// creates the provider.
func NewAmountContextProvider(largeExpr string, weight float64) (*AmountContextProvider, error) {
	if largeExpr == "" {
		largeExpr = domain.DefaultLargeAmountExpr
	}
	pred, err := CompilePredicate(largeExpr)
	if err != nil {
		return nil, fmt.Errorf("large amount predicate: %w", err)
	}
	return &AmountContextProvider{large: pred, weight: weight}, nil
}

// Name implements Provider.
func (p *AmountContextProvider) Name() domain.Signal {
	return domain.SignalAmountContext
}

// Compute implements Provider. Amounts matching the large-amount
// predicate score +0.5 points, everything else 0.
func (p *AmountContextProvider) Compute(ctx context.Context, tx *domain.Transaction) (domain.SignalContribution, error) {
	isLarge, err := p.large.Eval(tx)
	if err != nil {
		return domain.SignalContribution{}, err
	}

	points := 0.0
	rationale := "amount within typical range"
	if isLarge {
		points = 0.5
		rationale = fmt.Sprintf("large amount: %.0f exceeds the high-value threshold", tx.Amount)
	}

	return domain.SignalContribution{
		Signal:    domain.SignalAmountContext,
		Weight:    p.weight,
		RawScore:  rawScore(points, p.weight),
		Rationale: rationale,
	}, nil
}
