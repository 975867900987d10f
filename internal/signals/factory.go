package signals

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/history"
)

// NewDefaultResolver wires the four standard providers from the engine
// and signal configuration.
func NewDefaultResolver(cfg *domain.Config, hist *history.Service) (*Resolver, error) {
	engineCfg := cfg.Engine
	if engineCfg == nil {
		engineCfg = domain.DefaultEngineConfig()
	}

	destination, err := NewDestinationTypeProvider(cfg.Signals.MerchantExpr, engineCfg.Weight(domain.SignalDestinationType))
	if err != nil {
		return nil, fmt.Errorf("failed to build destination type provider: %w", err)
	}

	amount, err := NewAmountContextProvider(cfg.Signals.LargeAmountExpr, engineCfg.Weight(domain.SignalAmountContext))
	if err != nil {
		return nil, fmt.Errorf("failed to build amount context provider: %w", err)
	}

	providers := []Provider{
		NewAccountBehaviorProvider(hist, engineCfg.Weight(domain.SignalAccountBehavior)),
		NewBalanceAnomalyProvider(engineCfg.Weight(domain.SignalBalanceAnomaly)),
		destination,
		amount,
	}

	return NewResolver(providers, 4)
}
