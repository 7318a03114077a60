package logpub

import (
	"context"
	"log/slog"

	"payment-gateway/internal/core/domain"
)

// Publisher is a log-only EventPublisher used when no broker is configured,
// e.g. in local runs and tests.
type Publisher struct {
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) PublishPaymentProcessed(_ context.Context, payment domain.Payment) error {
	p.logger.Debug("payment event (no broker configured)",
		"payment_id", payment.ID,
		"status", payment.Status,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)
	return nil
}
