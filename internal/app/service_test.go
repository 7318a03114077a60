package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"payment-gateway/internal/adapters/bank"
	"payment-gateway/internal/adapters/messaging/logpub"
	"payment-gateway/internal/adapters/storage/memory"
	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
)

// Mock implementation of the payment store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, payment domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Payment), args.Error(1)
}

// Mock implementation of the acquiring bank.
type MockBank struct {
	mock.Mock
}

func (m *MockBank) Authorize(ctx context.Context, req domain.AuthorizationRequest) (domain.BankDecision, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.BankDecision), args.Error(1)
}

// Mock implementation of the event publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPaymentProcessed(ctx context.Context, payment domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService wires the engine with a fixed clock so expiry validation
// does not depend on the wall clock.
func newTestService(store ports.PaymentStore, acquirer ports.AcquiringBank, idemKeys ports.IdempotencyKeyStore, publisher ports.EventPublisher) ports.PaymentService {
	svc := NewPaymentService(store, acquirer, idemKeys, publisher, testLogger()).(*service)
	svc.now = func() time.Time { return testNow }
	return svc
}

func validRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		CardNumber:  "4242424242424242",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		CVV:         "123",
		Currency:    "USD",
		Amount:      1000,
	}
}

func TestProcessPayment_Authorized(t *testing.T) {
	mockStore := new(MockStore)
	mockBank := new(MockBank)
	mockPublisher := new(MockPublisher)
	svc := newTestService(mockStore, mockBank, memory.NewIdempotencyKeyStore(), mockPublisher)

	ctx := context.Background()
	mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).Return(domain.DecisionAuthorized, nil)
	mockStore.On("Save", ctx, mock.AnythingOfType("domain.Payment")).Return(nil)
	mockPublisher.On("PublishPaymentProcessed", ctx, mock.AnythingOfType("domain.Payment")).Return(nil)

	result, err := svc.ProcessPayment(ctx, validRequest(), "")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, result.Payment.Status)
	assert.Equal(t, "************4242", result.Payment.MaskedCardNumber)
	assert.Equal(t, int64(1000), result.Payment.Amount)
	assert.Equal(t, "USD", result.Payment.Currency)
	assert.NotEqual(t, uuid.Nil, result.Payment.ID)
	assert.Empty(t, result.ValidationErrors)

	mockStore.AssertNumberOfCalls(t, "Save", 1)
	mockBank.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestProcessPayment_Declined(t *testing.T) {
	mockStore := new(MockStore)
	mockBank := new(MockBank)
	mockPublisher := new(MockPublisher)
	svc := newTestService(mockStore, mockBank, memory.NewIdempotencyKeyStore(), mockPublisher)

	ctx := context.Background()
	mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).Return(domain.DecisionDeclined, nil)
	mockStore.On("Save", ctx, mock.AnythingOfType("domain.Payment")).Return(nil)
	mockPublisher.On("PublishPaymentProcessed", ctx, mock.AnythingOfType("domain.Payment")).Return(nil)

	result, err := svc.ProcessPayment(ctx, validRequest(), "")

	require.NoError(t, err)
	// A decline is a regular business outcome, not an error.
	assert.Equal(t, domain.StatusDeclined, result.Payment.Status)
	mockStore.AssertNumberOfCalls(t, "Save", 1)
}

func TestProcessPayment_RejectedPersistsRecord(t *testing.T) {
	mockBank := new(MockBank)
	store := memory.NewPaymentStore()
	svc := newTestService(store, mockBank, memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	ctx := context.Background()
	req := validRequest()
	req.CardNumber = "4242424242424241" // fails Luhn

	result, err := svc.ProcessPayment(ctx, req, "")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Payment.Status)
	assert.Equal(t, "************4241", result.Payment.MaskedCardNumber)
	require.NotEmpty(t, result.ValidationErrors)
	assert.Equal(t, "card_number", result.ValidationErrors[0].Field)

	// The bank is never consulted for an invalid request, but exactly one
	// record is still persisted and retrievable.
	mockBank.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
	assert.Equal(t, 1, store.Len())

	stored, err := svc.GetPayment(ctx, result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	// Reasons are response metadata, not entity state: the stored record
	// looks the same as any other payment.
	assert.Equal(t, result.Payment, stored)
}

func TestProcessPayment_UnsupportedCurrencyRejected(t *testing.T) {
	mockBank := new(MockBank)
	store := memory.NewPaymentStore()
	svc := newTestService(store, mockBank, memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	req := validRequest()
	req.Currency = "ZZZ"

	result, err := svc.ProcessPayment(context.Background(), req, "")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Payment.Status)
	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, "currency", result.ValidationErrors[0].Field)
	assert.Equal(t, 1, store.Len())
}

func TestProcessPayment_BankUnavailable(t *testing.T) {
	mockStore := new(MockStore)
	mockBank := new(MockBank)
	svc := newTestService(mockStore, mockBank, memory.NewIdempotencyKeyStore(), new(MockPublisher))

	ctx := context.Background()
	mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).
		Return(domain.BankDecision(""), errors.New("connection reset"))

	_, err := svc.ProcessPayment(ctx, validRequest(), "")

	assert.ErrorIs(t, err, domain.ErrBankUnavailable)
	mockStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProcessPayment_StoreFailures(t *testing.T) {
	t.Run("generic store failure", func(t *testing.T) {
		mockStore := new(MockStore)
		mockBank := new(MockBank)
		svc := newTestService(mockStore, mockBank, memory.NewIdempotencyKeyStore(), new(MockPublisher))

		ctx := context.Background()
		mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).Return(domain.DecisionAuthorized, nil)
		mockStore.On("Save", ctx, mock.AnythingOfType("domain.Payment")).Return(errors.New("disk on fire"))

		_, err := svc.ProcessPayment(ctx, validRequest(), "")
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})

	t.Run("duplicate identifier surfaces as-is", func(t *testing.T) {
		mockStore := new(MockStore)
		mockBank := new(MockBank)
		svc := newTestService(mockStore, mockBank, memory.NewIdempotencyKeyStore(), new(MockPublisher))

		ctx := context.Background()
		mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).Return(domain.DecisionAuthorized, nil)
		mockStore.On("Save", ctx, mock.AnythingOfType("domain.Payment")).Return(domain.ErrDuplicatePaymentID)

		_, err := svc.ProcessPayment(ctx, validRequest(), "")
		assert.ErrorIs(t, err, domain.ErrDuplicatePaymentID)
	})
}

func TestProcessPayment_PublishFailureDoesNotFailPayment(t *testing.T) {
	mockBank := new(MockBank)
	mockPublisher := new(MockPublisher)
	store := memory.NewPaymentStore()
	svc := newTestService(store, mockBank, memory.NewIdempotencyKeyStore(), mockPublisher)

	ctx := context.Background()
	mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).Return(domain.DecisionAuthorized, nil)
	mockPublisher.On("PublishPaymentProcessed", ctx, mock.AnythingOfType("domain.Payment")).Return(errors.New("broker down"))

	result, err := svc.ProcessPayment(ctx, validRequest(), "")

	// The record is already persisted; a broker outage must not turn the
	// payment into an error.
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, result.Payment.Status)
	assert.Equal(t, 1, store.Len())
}

func TestProcessPayment_IdempotencyKey(t *testing.T) {
	mockBank := new(MockBank)
	store := memory.NewPaymentStore()
	svc := newTestService(store, mockBank, memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	ctx := context.Background()
	mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).Return(domain.DecisionAuthorized, nil)

	key := uuid.New().String()
	_, err := svc.ProcessPayment(ctx, validRequest(), key)
	require.NoError(t, err)

	_, err = svc.ProcessPayment(ctx, validRequest(), key)
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyUsed)
	assert.Equal(t, 1, store.Len())
}

func TestProcessPayment_KeyNotRecordedOnRejection(t *testing.T) {
	mockBank := new(MockBank)
	store := memory.NewPaymentStore()
	svc := newTestService(store, mockBank, memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	ctx := context.Background()
	mockBank.On("Authorize", ctx, mock.AnythingOfType("domain.AuthorizationRequest")).Return(domain.DecisionAuthorized, nil)

	key := uuid.New().String()
	bad := validRequest()
	bad.CVV = "x"

	result, err := svc.ProcessPayment(ctx, bad, key)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, result.Payment.Status)

	// The merchant fixes the request and retries with the same key; the
	// retry must go through.
	result, err = svc.ProcessPayment(ctx, validRequest(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, result.Payment.Status)
	assert.Equal(t, 2, store.Len())
}

func TestProcessPayment_NoDeduplicationWithoutKey(t *testing.T) {
	store := memory.NewPaymentStore()
	svc := newTestService(store, bank.NewSimulator(bank.AlwaysAuthorize, 0), memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	ctx := context.Background()
	first, err := svc.ProcessPayment(ctx, validRequest(), "")
	require.NoError(t, err)
	second, err := svc.ProcessPayment(ctx, validRequest(), "")
	require.NoError(t, err)

	// Identical content still produces two distinct records: one record per
	// call, not per content.
	assert.NotEqual(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, 2, store.Len())
}

func TestProcessPayment_RetrievableAfterProcessing(t *testing.T) {
	store := memory.NewPaymentStore()
	svc := newTestService(store, bank.NewSimulator(bank.AlwaysAuthorize, 0), memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	ctx := context.Background()
	result, err := svc.ProcessPayment(ctx, validRequest(), "")
	require.NoError(t, err)

	stored, err := svc.GetPayment(ctx, result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, stored.Status)
	assert.Equal(t, "************4242", stored.MaskedCardNumber)
	assert.Equal(t, int64(1000), stored.Amount)
	assert.Equal(t, "USD", stored.Currency)
	assert.Equal(t, 12, stored.ExpiryMonth)
	assert.Equal(t, 2030, stored.ExpiryYear)
}

func TestGetPayment_NotFound(t *testing.T) {
	svc := newTestService(memory.NewPaymentStore(), bank.NewSimulator(bank.AlwaysAuthorize, 0), memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	_, err := svc.GetPayment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestProcessPayment_ConcurrentCalls(t *testing.T) {
	const n = 32

	store := memory.NewPaymentStore()
	svc := newTestService(store, bank.NewSimulator(bank.AlwaysAuthorize, 0), memory.NewIdempotencyKeyStore(), logpub.NewPublisher(testLogger()))

	ctx := context.Background()
	ids := make([]uuid.UUID, n)
	amounts := make([]int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.Amount = int64(100 + i)
			result, err := svc.ProcessPayment(ctx, req, fmt.Sprintf("key-%d", i))
			if err != nil {
				t.Errorf("ProcessPayment failed: %v", err)
				return
			}
			ids[i] = result.Payment.ID
			amounts[i] = result.Payment.Amount
		}(i)
	}
	wg.Wait()

	// No lost writes: every call produced its own retrievable record.
	assert.Equal(t, n, store.Len())
	seen := make(map[uuid.UUID]bool, n)
	for i := 0; i < n; i++ {
		assert.False(t, seen[ids[i]], "duplicate payment id")
		seen[ids[i]] = true

		stored, err := svc.GetPayment(ctx, ids[i])
		require.NoError(t, err)
		assert.Equal(t, amounts[i], stored.Amount)
	}
}
