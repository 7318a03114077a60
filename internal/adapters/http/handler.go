package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"payment-gateway/internal/core/domain"
	"payment-gateway/internal/core/ports"
)

// IdempotencyKeyHeader carries the merchant-supplied idempotency key.
const IdempotencyKeyHeader = "Cko-Idempotency-Key"

// PaymentHandler maps the two engine operations onto HTTP.
type PaymentHandler struct {
	service ports.PaymentService
	logger  *slog.Logger
}

func NewPaymentHandler(service ports.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

type createPaymentRequest struct {
	CardNumber  string `json:"card_number"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
}

// paymentResponse exposes masked card data only; the full number and CVV
// never leave the request path.
type paymentResponse struct {
	ID               string   `json:"id"`
	Status           string   `json:"status"`
	MaskedCardNumber string   `json:"masked_card_number"`
	ExpiryMonth      int      `json:"expiry_month"`
	ExpiryYear       int      `json:"expiry_year"`
	Currency         string   `json:"currency"`
	Amount           int64    `json:"amount"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
}

func toPaymentResponse(payment domain.Payment, reasons []string) paymentResponse {
	return paymentResponse{
		ID:               payment.ID.String(),
		Status:           string(payment.Status),
		MaskedCardNumber: payment.MaskedCardNumber,
		ExpiryMonth:      payment.ExpiryMonth,
		ExpiryYear:       payment.ExpiryYear,
		Currency:         payment.Currency,
		Amount:           payment.Amount,
		ValidationErrors: reasons,
	}
}

func (h *PaymentHandler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest, h.logger)
		return
	}

	result, err := h.service.ProcessPayment(r.Context(), domain.PaymentRequest{
		CardNumber:  req.CardNumber,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
		Currency:    req.Currency,
		Amount:      req.Amount,
	}, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIdempotencyKeyUsed):
			writeJSONError(w, "idempotency key already used", http.StatusConflict, h.logger)

		case errors.Is(err, domain.ErrStorageUnavailable),
			errors.Is(err, domain.ErrBankUnavailable):
			h.logger.Warn("temporary failure in external dependency", "error", err)
			writeJSONError(w, "service temporarily unavailable", http.StatusServiceUnavailable, h.logger)

		default:
			// Includes ErrDuplicatePaymentID: an identifier collision is an
			// internal invariant violation, not a client problem.
			h.logger.Error("unexpected error during payment processing", "error", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError, h.logger)
		}
		return
	}

	status := http.StatusCreated
	if result.Payment.Status == domain.StatusRejected {
		// The rejection is recorded, but from the merchant's point of view
		// this is a client error.
		status = http.StatusBadRequest
	}

	resp := toPaymentResponse(result.Payment, reasonStrings(result.ValidationErrors))
	writeJSON(w, resp, status, h.logger)
}

func (h *PaymentHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, "invalid payment id", http.StatusBadRequest, h.logger)
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			writeJSONError(w, "payment not found", http.StatusNotFound, h.logger)
		case errors.Is(err, domain.ErrStorageUnavailable):
			h.logger.Warn("payment store unavailable", "error", err)
			writeJSONError(w, "service temporarily unavailable", http.StatusServiceUnavailable, h.logger)
		default:
			h.logger.Error("unexpected error during payment lookup", "error", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError, h.logger)
		}
		return
	}

	writeJSON(w, toPaymentResponse(payment, nil), http.StatusOK, h.logger)
}

func reasonStrings(errs []domain.ValidationError) []string {
	if len(errs) == 0 {
		return nil
	}
	reasons := make([]string, 0, len(errs))
	for _, e := range errs {
		reasons = append(reasons, e.Error())
	}
	return reasons
}

func writeJSON(w http.ResponseWriter, body any, status int, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write json response", "error", err)
	}
}

// writeJSONError sends an error payload with the given status.
func writeJSONError(w http.ResponseWriter, message string, status int, logger *slog.Logger) {
	writeJSON(w, map[string]string{"error": message}, status, logger)
}
