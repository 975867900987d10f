package domain

import "errors"

// Classification errors. All are detected before or during scoring and
// surfaced to the caller as-is; the engine never produces a partial
// result on invalid input.
var (
	// ErrInvalidTransactionType is returned for a type outside the five
	// recognized PaySim values.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidTransactionAmount is returned for a negative amount.
	ErrInvalidTransactionAmount = errors.New("invalid transaction amount")

	// ErrInvalidBalanceValue is returned for a negative balance field.
	ErrInvalidBalanceValue = errors.New("invalid balance value")

	// ErrMissingSignalContribution is returned when a required signal is
	// absent at aggregation time. A missing signal is never zero-filled:
	// treating "unknown" as "benign" would mask provider failure.
	ErrMissingSignalContribution = errors.New("missing signal contribution")
)
