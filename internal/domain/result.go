package domain

import "time"

// Decision is the final verdict for a transaction.
type Decision string

const (
	DecisionLegitimate Decision = "LEGITIMATE"
	DecisionSuspicious Decision = "SUSPICIOUS"
	DecisionFraud      Decision = "FRAUD"
)

// Severity ranks decisions for safeguard comparison. Safeguards may only
// move a decision toward lower severity.
func (d Decision) Severity() int {
	switch d {
	case DecisionSuspicious:
		return 1
	case DecisionFraud:
		return 2
	default:
		return 0
	}
}

// MinDecision returns the less severe of two decisions.
func MinDecision(a, b Decision) Decision {
	if b.Severity() < a.Severity() {
		return b
	}
	return a
}

// Safeguard names recorded in ScoreResult.TriggeredSafeguards.
const (
	SafeguardTypeGateBypass  = "type_gate_bypass"
	SafeguardSingleSignalCap = "single_signal_cap"
)

// ScoreResult is the scoring engine's output for one transaction.
type ScoreResult struct {
	// TotalScore is the weighted sum over the four signals, unclamped.
	TotalScore float64 `json:"totalScore"`

	Decision Decision `json:"decision"`

	// FraudProbability is the calibrated probability in [0,1].
	FraudProbability float64 `json:"fraudProbability"`

	// TriggeredSafeguards lists, in evaluation order, every safeguard
	// that fired.
	TriggeredSafeguards []string `json:"triggeredSafeguards"`

	// SignalBreakdown preserves the four contributions in canonical
	// order for explainability. Empty for type-gated transactions.
	SignalBreakdown []SignalContribution `json:"signalBreakdown,omitempty"`
}

// Classification wraps a ScoreResult with request-level metadata. It is
// handed to the presentation layer and discarded; verdicts are not
// persisted.
type Classification struct {
	ID        string       `json:"id"`
	TxID      string       `json:"txId"`
	TxType    TxType       `json:"txType"`
	Result    *ScoreResult `json:"result"`
	Timestamp time.Time    `json:"timestamp"`

	Metadata ClassificationMetadata `json:"metadata"`
}

// ClassificationMetadata carries processing information.
type ClassificationMetadata struct {
	TraceID       string `json:"traceId"`
	SignalsMs     int64  `json:"signalsMs"`
	DecisionMs    int64  `json:"decisionMs"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// ShouldAlert reports whether a classification warrants an alert event.
func (c *Classification) ShouldAlert() bool {
	return c.Result != nil && c.Result.Decision != DecisionLegitimate
}
