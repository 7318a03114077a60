package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is our own type for statuses to avoid "magic strings".
type PaymentStatus string

const (
	StatusAuthorized PaymentStatus = "AUTHORIZED"
	StatusDeclined   PaymentStatus = "DECLINED"
	StatusRejected   PaymentStatus = "REJECTED"
)

// Payment is the central entity of the domain. It carries no JSON or DB
// tags, it is a pure business model. Status is fixed at creation and a
// payment is never mutated after it has been saved; every authorization
// attempt produces a new record.
type Payment struct {
	ID               uuid.UUID
	Status           PaymentStatus
	MaskedCardNumber string
	ExpiryMonth      int
	ExpiryYear       int
	Currency         string
	Amount           int64 // minor currency units
	CreatedAt        time.Time
}

// PaymentResult is what the engine hands back to the caller: the persisted
// payment plus the validation failures, if any. The failures are response
// metadata only, they are never part of the stored entity.
type PaymentResult struct {
	Payment          Payment
	ValidationErrors []ValidationError
}

// BankDecision is the outcome of an authorization attempt at the acquiring
// bank. A real integration would extend this with a timeout/unavailable
// variant; the in-process simulator only ever produces these two.
type BankDecision string

const (
	DecisionAuthorized BankDecision = "AUTHORIZED"
	DecisionDeclined   BankDecision = "DECLINED"
)

// AuthorizationRequest is the card context forwarded to the acquiring bank.
// It holds the full card number and therefore must never be persisted or
// logged.
type AuthorizationRequest struct {
	CardNumber  string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
	Currency    string
	Amount      int64
}

// MaskCardNumber keeps only the last four digits of a card number and
// replaces the rest with '*'. Numbers of four digits or fewer are masked
// entirely.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return strings.Repeat("*", len(cardNumber))
	}
	return strings.Repeat("*", len(cardNumber)-4) + cardNumber[len(cardNumber)-4:]
}
