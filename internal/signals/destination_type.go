package signals

import (
	"context"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// DestinationTypeProvider scores the destination account's class.
// Merchant destinations lower risk; regular user accounts are neutral.
// The merchant test is a configurable predicate so operators can adapt
// it to their account ID scheme.
type DestinationTypeProvider struct {
	merchant *Predicate
	weight   float64
}

// NewDestinationTypeProvider compiles the merchant predicate and creates
// the provider.
func NewDestinationTypeProvider(merchantExpr string, weight float64) (*DestinationTypeProvider, error) {
	if merchantExpr == "" {
		merchantExpr = domain.DefaultMerchantExpr
	}
	pred, err := CompilePredicate(merchantExpr)
	if err != nil {
		return nil, fmt.Errorf("merchant predicate: %w", err)
	}
	return &DestinationTypeProvider{merchant: pred, weight: weight}, nil
}

// Name implements Provider.
func (p *DestinationTypeProvider) Name() domain.Signal {
	return domain.SignalDestinationType
}

// Compute implements Provider. Merchant destination scores -1 point,
// regular user accounts score 0.
func (p *DestinationTypeProvider) Compute(ctx context.Context, tx *domain.Transaction) (domain.SignalContribution, error) {
	isMerchant, err := p.merchant.Eval(tx)
	if err != nil {
		return domain.SignalContribution{}, err
	}

	points := 0.0
	rationale := "regular user account: neutral risk"
	if isMerchant {
		points = -1
		rationale = "merchant destination: lower fraud risk"
	}

	return domain.SignalContribution{
		Signal:    domain.SignalDestinationType,
		Weight:    p.weight,
		RawScore:  rawScore(points, p.weight),
		Rationale: rationale,
	}, nil
}
