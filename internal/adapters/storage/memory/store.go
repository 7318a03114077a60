package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"payment-gateway/internal/core/domain"
)

// PaymentStore is the reference in-memory implementation of the PaymentStore
// port. A mutex keeps check-and-insert linearizable so concurrent saves with
// a colliding identifier cannot both win, and reads never observe a
// half-written record.
type PaymentStore struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]domain.Payment
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{payments: make(map[uuid.UUID]domain.Payment)}
}

// Save inserts the payment, rejecting duplicate identifiers.
func (s *PaymentStore) Save(_ context.Context, payment domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[payment.ID]; exists {
		return domain.ErrDuplicatePaymentID
	}
	s.payments[payment.ID] = payment
	return nil
}

// Get returns a copy of the stored payment. Payment contains no reference
// fields, so the map value is already a safe copy.
func (s *PaymentStore) Get(_ context.Context, id uuid.UUID) (domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payment, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// Len reports the number of stored payments. Used by tests to verify the
// exactly-one-record-per-call guarantee.
func (s *PaymentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}

// IdempotencyKeyStore is the in-memory implementation of the
// IdempotencyKeyStore port. Keys live for the process lifetime; a durable
// deployment swaps in the Redis adapter.
type IdempotencyKeyStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewIdempotencyKeyStore() *IdempotencyKeyStore {
	return &IdempotencyKeyStore{keys: make(map[string]struct{})}
}

func (s *IdempotencyKeyStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *IdempotencyKeyStore) Add(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
	return nil
}
