package domain

// Signal identifies one of the four evidence sources about a transaction.
type Signal string

const (
	SignalAccountBehavior Signal = "account_behavior"
	SignalBalanceAnomaly  Signal = "balance_anomaly"
	SignalDestinationType Signal = "destination_type"
	SignalAmountContext   Signal = "amount_context"
)

// SignalOrder is the canonical breakdown order. Aggregation iterates in
// this order so identical inputs always produce identical results.
var SignalOrder = []Signal{
	SignalAccountBehavior,
	SignalBalanceAnomaly,
	SignalDestinationType,
	SignalAmountContext,
}

// SignalContribution is one signal's weighted input to the scoring engine.
type SignalContribution struct {
	Signal Signal `json:"signal"`

	// Weight is fixed per signal; the four weights sum to 1.0.
	Weight float64 `json:"weight"`

	// RawScore is signed; positive indicates suspicion. Providers emit
	// analyst points divided by the signal weight, so weight*raw recovers
	// the point value. The engine aggregates whatever it is given without
	// clamping.
	RawScore float64 `json:"rawScore"`

	// Rationale is the human-readable justification for the score.
	Rationale string `json:"rationale"`
}

// Contribution returns the weighted contribution of this signal.
func (c SignalContribution) Contribution() float64 {
	return c.Weight * c.RawScore
}
