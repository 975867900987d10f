// Package signals implements the four risk signal providers and the
// resolver that runs them against a transaction.
package signals

import (
	"context"
	"fmt"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Provider computes one signal's contribution for a transaction. Raw
// scores are expressed on the provider's point scale divided by the
// signal weight, so the weighted sum recovers analyst points directly.
type Provider interface {
	// Name returns the signal this provider computes.
	Name() domain.Signal

	// Compute evaluates the signal for a transaction. Providers must be
	// deterministic over (transaction, account history): no randomness,
	// no wall-clock dependence.
	Compute(ctx context.Context, tx *domain.Transaction) (domain.SignalContribution, error)
}

// Resolver runs all registered providers and collects a complete signal
// breakdown. A provider failure fails the whole resolution: downstream
// scoring refuses partial breakdowns, so there is no point continuing.
type Resolver struct {
	providers  []Provider
	maxWorkers int
}

// NewResolver creates a resolver over the given providers. Every signal
// in the canonical order must have exactly one provider.
func NewResolver(providers []Provider, maxWorkers int) (*Resolver, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	seen := make(map[domain.Signal]bool, len(providers))
	for _, p := range providers {
		if seen[p.Name()] {
			return nil, fmt.Errorf("duplicate provider for signal %s", p.Name())
		}
		seen[p.Name()] = true
	}
	for _, name := range domain.SignalOrder {
		if !seen[name] {
			return nil, fmt.Errorf("no provider registered for signal %s", name)
		}
	}

	return &Resolver{
		providers:  providers,
		maxWorkers: maxWorkers,
	}, nil
}

// Resolve computes all signals in parallel and returns contributions in
// provider registration order.
func (r *Resolver) Resolve(ctx context.Context, tx *domain.Transaction) ([]domain.SignalContribution, error) {
	results := make([]domain.SignalContribution, len(r.providers))
	errs := make([]error, len(r.providers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.maxWorkers)

	for i, p := range r.providers {
		wg.Add(1)
		go func(idx int, provider Provider) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			contribution, err := provider.Compute(ctx, tx)
			if err != nil {
				errs[idx] = fmt.Errorf("signal %s: %w", provider.Name(), err)
				return
			}
			results[idx] = contribution
		}(i, p)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// rawScore converts analyst points to the raw scale for a signal weight,
// so that weight * raw == points after aggregation.
func rawScore(points, weight float64) float64 {
	if weight == 0 {
		return 0
	}
	return points / weight
}
