package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"payment-gateway/internal/core/domain"
)

// PaymentStore is an outgoing port: it defines WHAT the engine needs from
// storage, not HOW it is stored. Implementations exist for in-memory and
// PostgreSQL. The store is the single source of truth for which payments
// have been recorded; the engine keeps no shadow state.
type PaymentStore interface {
	// Save inserts a new payment and fails with domain.ErrDuplicatePaymentID
	// if the identifier already exists. Check-and-insert must be atomic.
	Save(ctx context.Context, payment domain.Payment) error
	// Get returns the stored payment or domain.ErrPaymentNotFound. The
	// returned value is a copy, never a reference into store internals.
	Get(ctx context.Context, id uuid.UUID) (domain.Payment, error)
}

// AcquiringBank is the outgoing port towards the processor that approves or
// declines a payment. The in-process simulator never returns a non-nil
// error; the error is the extension point for a real integration where the
// decision may be unknown (timeout, connection loss).
type AcquiringBank interface {
	Authorize(ctx context.Context, req domain.AuthorizationRequest) (domain.BankDecision, error)
}

// IdempotencyKeyStore tracks merchant-supplied idempotency keys so a retried
// request is not processed twice.
type IdempotencyKeyStore interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

// EventPublisher is an outgoing port for announcing processed payments to
// downstream consumers.
type EventPublisher interface {
	PublishPaymentProcessed(ctx context.Context, payment domain.Payment) error
}

// RateLimiterRepository backs the HTTP rate limiting middleware.
type RateLimiterRepository interface {
	IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PaymentService is the incoming port: the only two operations the gateway
// exposes to its HTTP adapter.
type PaymentService interface {
	// ProcessPayment validates the request, consults the acquiring bank for
	// valid requests and always persists exactly one payment record.
	// idempotencyKey may be empty, in which case no deduplication happens.
	ProcessPayment(ctx context.Context, req domain.PaymentRequest, idempotencyKey string) (domain.PaymentResult, error)
	// GetPayment returns the recorded payment or domain.ErrPaymentNotFound.
	GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error)
}
