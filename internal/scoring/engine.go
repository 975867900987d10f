// Package scoring implements the weighted multi-signal scoring engine:
// type gating, weighted aggregation, threshold mapping and the safeguard
// policy that keeps any single signal from flagging fraud on its own.
package scoring

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine turns four resolved signal contributions into a bounded score,
// a calibrated probability and a final decision. It is a pure computation
// over its input: no I/O, no hidden state, safe for concurrent use.
type Engine struct {
	cfg *domain.EngineConfig
}

// NewEngine creates a scoring engine with the given configuration.
func NewEngine(cfg *domain.EngineConfig) (*Engine, error) {
	if cfg == nil {
		cfg = domain.DefaultEngineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() *domain.EngineConfig {
	return e.cfg
}

// Gate inspects the transaction type and either short-circuits to a
// terminal LEGITIMATE result or signals that scoring should proceed.
// The gate is absolute: no signal value can override it. An unrecognized
// type fails fast rather than defaulting.
func (e *Engine) Gate(t domain.TxType) (*domain.ScoreResult, bool, error) {
	if _, err := domain.ParseTxType(string(t)); err != nil {
		return nil, false, err
	}

	if !e.cfg.Bypasses(t) {
		return nil, false, nil
	}

	return &domain.ScoreResult{
		TotalScore:          0,
		Decision:            domain.DecisionLegitimate,
		FraudProbability:    e.cfg.BypassProbability,
		TriggeredSafeguards: []string{domain.SafeguardTypeGateBypass},
	}, true, nil
}

// Score aggregates the four signal contributions into a ScoreResult.
// Every required signal must be present exactly once; a missing signal is
// a hard error, never a zero-fill. Raw scores outside the conventional
// [-1,1] range aggregate without clamping.
func (e *Engine) Score(contributions []domain.SignalContribution) (*domain.ScoreResult, error) {
	breakdown, err := e.orderContributions(contributions)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, c := range breakdown {
		total += c.Contribution()
	}

	decision, probability := e.mapScore(total)

	result := &domain.ScoreResult{
		TotalScore:          total,
		Decision:            decision,
		FraudProbability:    probability,
		TriggeredSafeguards: []string{},
		SignalBreakdown:     breakdown,
	}

	e.applySafeguards(result, breakdown)

	return result, nil
}

// orderContributions validates the input signal set and returns it in
// canonical order so identical inputs always yield identical results.
func (e *Engine) orderContributions(contributions []domain.SignalContribution) ([]domain.SignalContribution, error) {
	byName := make(map[domain.Signal]domain.SignalContribution, len(contributions))
	for _, c := range contributions {
		if _, dup := byName[c.Signal]; dup {
			return nil, fmt.Errorf("duplicate contribution for signal %s", c.Signal)
		}
		byName[c.Signal] = c
	}

	ordered := make([]domain.SignalContribution, 0, len(domain.SignalOrder))
	for _, name := range domain.SignalOrder {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingSignalContribution, name)
		}
		// Weights are owned by the engine configuration, not the provider.
		c.Weight = e.cfg.Weight(name)
		ordered = append(ordered, c)
	}

	if len(byName) != len(domain.SignalOrder) {
		return nil, fmt.Errorf("unexpected signal in input: got %d contributions, want %d",
			len(byName), len(domain.SignalOrder))
	}

	return ordered, nil
}

// mapScore maps a total score to a decision and probability. The mapping
// is total: every real score resolves to exactly one band.
//
//	score <= suspicious threshold          -> LEGITIMATE
//	suspicious < score <= fraud threshold  -> SUSPICIOUS
//	score > fraud threshold                -> FRAUD
func (e *Engine) mapScore(total float64) (domain.Decision, float64) {
	switch {
	case total > e.cfg.FraudThreshold:
		return domain.DecisionFraud, e.cfg.FraudProbability
	case total > e.cfg.SuspiciousThreshold:
		return domain.DecisionSuspicious, e.cfg.SuspiciousProbability
	default:
		return domain.DecisionLegitimate, e.legitimateProbability(total)
	}
}

// legitimateProbability interpolates linearly from the floor at score 0
// to the ceiling at the suspicious threshold. Monotone within the band:
// a higher score never yields a lower probability.
func (e *Engine) legitimateProbability(total float64) float64 {
	if total <= 0 {
		return e.cfg.LegitimateProbabilityFloor
	}
	span := e.cfg.LegitimateProbabilityCeil - e.cfg.LegitimateProbabilityFloor
	return e.cfg.LegitimateProbabilityFloor + span*(total/e.cfg.SuspiciousThreshold)
}

// applySafeguards evaluates the override rules in fixed order. Each rule
// can only lower severity; every rule that fires is recorded, and the
// least severe decision consistent with all fired rules is applied.
func (e *Engine) applySafeguards(result *domain.ScoreResult, breakdown []domain.SignalContribution) {
	// Single-signal cap: an isolated signal, however strong, may not
	// justify a FRAUD verdict. Fraud requires corroboration across at
	// least two signal families. The non-zero test applies to the literal
	// raw value, clamped or not.
	nonZero := 0
	for _, c := range breakdown {
		if c.RawScore != 0 {
			nonZero++
		}
	}
	if nonZero == 1 && result.Decision.Severity() > domain.DecisionSuspicious.Severity() {
		result.TriggeredSafeguards = append(result.TriggeredSafeguards, domain.SafeguardSingleSignalCap)
		result.Decision = domain.MinDecision(result.Decision, domain.DecisionSuspicious)
		result.FraudProbability = e.cfg.SuspiciousProbability
	}
}
