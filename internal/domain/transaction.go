package domain

import (
	"fmt"
	"time"
)

// TxType is the PaySim transaction type.
type TxType string

const (
	TypePayment  TxType = "PAYMENT"
	TypeCashIn   TxType = "CASH_IN"
	TypeDebit    TxType = "DEBIT"
	TypeTransfer TxType = "TRANSFER"
	TypeCashOut  TxType = "CASH_OUT"
)

// AllTxTypes lists every recognized transaction type.
func AllTxTypes() []TxType {
	return []TxType{TypePayment, TypeCashIn, TypeDebit, TypeTransfer, TypeCashOut}
}

// ParseTxType validates a raw type string against the five-member enum.
// Unknown values fail fast - they are never coerced to a default.
func ParseTxType(s string) (TxType, error) {
	switch TxType(s) {
	case TypePayment, TypeCashIn, TypeDebit, TypeTransfer, TypeCashOut:
		return TxType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
}

// Transaction represents a single mobile-money transaction to be classified.
// The record is immutable after construction.
type Transaction struct {
	ID string `json:"id"`

	// Simulation step (hour) for imported dataset rows
	Step int `json:"step,omitempty"`

	Type TxType `json:"type"`

	// Origin (sender) account
	OriginID         string  `json:"originId"`
	OriginOldBalance float64 `json:"originOldBalance"`
	OriginNewBalance float64 `json:"originNewBalance"`

	// Destination account
	DestID         string  `json:"destId"`
	DestOldBalance float64 `json:"destOldBalance"`
	DestNewBalance float64 `json:"destNewBalance"`

	Amount float64 `json:"amount"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`

	// IsFraud is the PaySim ground-truth label, present only on imported
	// dataset rows consumed by the account-behavior signal. It is never
	// set on a classification request and never influences the current
	// transaction's own score.
	IsFraud bool `json:"isFraud,omitempty"`
}

// Validate checks the invariants of an incoming transaction before any
// signal computation is attempted.
func (t *Transaction) Validate() error {
	if _, err := ParseTxType(string(t.Type)); err != nil {
		return err
	}
	if t.Amount < 0 {
		return fmt.Errorf("%w: amount %.2f", ErrInvalidTransactionAmount, t.Amount)
	}
	for _, b := range []struct {
		name  string
		value float64
	}{
		{"originOldBalance", t.OriginOldBalance},
		{"originNewBalance", t.OriginNewBalance},
		{"destOldBalance", t.DestOldBalance},
		{"destNewBalance", t.DestNewBalance},
	} {
		if b.value < 0 {
			return fmt.Errorf("%w: %s %.2f", ErrInvalidBalanceValue, b.name, b.value)
		}
	}
	return nil
}
