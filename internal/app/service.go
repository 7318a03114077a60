package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
	"payment-gateway/internal/observability"
)

// service is the implementation of the PaymentService port. It orchestrates
// validation, the acquiring bank call and persistence, and guarantees that
// every ProcessPayment call stores exactly one payment record.
type service struct {
	store     ports.PaymentStore
	bank      ports.AcquiringBank
	idemKeys  ports.IdempotencyKeyStore
	publisher ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewPaymentService is the constructor of the engine. All collaborators come
// in through interfaces (dependency injection).
func NewPaymentService(
	store ports.PaymentStore,
	bank ports.AcquiringBank,
	idemKeys ports.IdempotencyKeyStore,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) ports.PaymentService {
	return &service{
		store:     store,
		bank:      bank,
		idemKeys:  idemKeys,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *service) ProcessPayment(ctx context.Context, req domain.PaymentRequest, idempotencyKey string) (domain.PaymentResult, error) {
	if idempotencyKey != "" {
		used, err := s.idemKeys.Contains(ctx, idempotencyKey)
		if err != nil {
			return domain.PaymentResult{}, fmt.Errorf("checking idempotency key: %w", err)
		}
		if used {
			return domain.PaymentResult{}, domain.ErrIdempotencyKeyUsed
		}
	}

	validation := domain.Validate(req, s.now())
	if !validation.Valid() {
		payment := s.newPayment(req, domain.StatusRejected)
		if err := s.persist(ctx, payment); err != nil {
			return domain.PaymentResult{}, err
		}
		s.logger.Info("payment rejected",
			"payment_id", payment.ID,
			"masked_card", payment.MaskedCardNumber,
			"reasons", validation.Reasons(),
		)
		return domain.PaymentResult{Payment: payment, ValidationErrors: validation.Errors}, nil
	}

	decision, err := s.bank.Authorize(ctx, domain.AuthorizationRequest{
		CardNumber:  req.CardNumber,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
		Currency:    req.Currency,
		Amount:      req.Amount,
	})
	if err != nil {
		// The in-process simulator is total and never takes this path. A
		// real integration lands here when the outcome is unknown; no record
		// is written because no outcome exists to record.
		return domain.PaymentResult{}, fmt.Errorf("%w: %v", domain.ErrBankUnavailable, err)
	}

	status := domain.StatusDeclined
	if decision == domain.DecisionAuthorized {
		status = domain.StatusAuthorized
	}

	payment := s.newPayment(req, status)
	if err := s.persist(ctx, payment); err != nil {
		return domain.PaymentResult{}, err
	}

	if idempotencyKey != "" {
		// The key is recorded only after the payment has been processed, so
		// a failed attempt can be retried with the same key.
		if err := s.idemKeys.Add(ctx, idempotencyKey); err != nil {
			s.logger.Warn("failed to record idempotency key", "error", err)
		}
	}

	s.logger.Info("payment processed",
		"payment_id", payment.ID,
		"status", payment.Status,
		"masked_card", payment.MaskedCardNumber,
		"amount", payment.Amount,
		"currency", payment.Currency,
	)
	return domain.PaymentResult{Payment: payment}, nil
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return s.store.Get(ctx, id)
}

func (s *service) newPayment(req domain.PaymentRequest, status domain.PaymentStatus) domain.Payment {
	return domain.Payment{
		ID:               uuid.New(),
		Status:           status,
		MaskedCardNumber: domain.MaskCardNumber(req.CardNumber),
		ExpiryMonth:      req.ExpiryMonth,
		ExpiryYear:       req.ExpiryYear,
		Currency:         req.Currency,
		Amount:           req.Amount,
		CreatedAt:        s.now(),
	}
}

// persist saves the payment, counts it and announces it. Publishing is best
// effort: the record is already stored, so a broker outage must not turn a
// processed payment into an error.
func (s *service) persist(ctx context.Context, payment domain.Payment) error {
	if err := s.store.Save(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrDuplicatePaymentID) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	observability.RecordPaymentProcessed(string(payment.Status))

	if err := s.publisher.PublishPaymentProcessed(ctx, payment); err != nil {
		s.logger.Warn("failed to publish payment event", "payment_id", payment.ID, "error", err)
	}
	return nil
}
