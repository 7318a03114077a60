package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SupportedCurrencies is the fixed allow-list of ISO 4217 codes the gateway
// accepts.
var SupportedCurrencies = map[string]struct{}{
	"USD": {},
	"EUR": {},
	"GBP": {},
}

// PaymentRequest is the inbound merchant request. It is validated and then
// discarded; only the masked card number survives into the Payment entity.
type PaymentRequest struct {
	CardNumber  string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
	Currency    string
	Amount      int64 // minor currency units
}

// ValidationError names the failing field and explains the failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationResult collects every failing check, not just the first one, so
// the caller can report all of them in a single response. An empty Errors
// slice means the request is valid. Invalid input is regular data here,
// never a Go error return.
type ValidationResult struct {
	Errors []ValidationError
}

func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Reasons flattens the failures into human-readable strings, in check order.
func (r ValidationResult) Reasons() []string {
	reasons := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		reasons = append(reasons, e.Error())
	}
	return reasons
}

// Validate runs every structural and business check against the request and
// collects all failures. It is a pure function: no I/O, no side effects, the
// current period is passed in by the caller.
func Validate(req PaymentRequest, now time.Time) ValidationResult {
	var errs []ValidationError

	errs = appendCardNumberErrors(errs, req.CardNumber)
	errs = appendExpiryErrors(errs, req.ExpiryMonth, req.ExpiryYear, now)
	errs = appendCVVErrors(errs, req.CVV)
	errs = appendCurrencyErrors(errs, req.Currency)

	if req.Amount <= 0 {
		errs = append(errs, ValidationError{Field: "amount", Message: "amount must be a positive number of minor units"})
	}

	return ValidationResult{Errors: errs}
}

func appendCardNumberErrors(errs []ValidationError, cardNumber string) []ValidationError {
	if cardNumber == "" {
		return append(errs, ValidationError{Field: "card_number", Message: "card number is required"})
	}
	if !isDigits(cardNumber) {
		return append(errs, ValidationError{Field: "card_number", Message: "card number must contain digits only"})
	}
	if l := len(cardNumber); l < 14 || l > 19 {
		return append(errs, ValidationError{Field: "card_number", Message: fmt.Sprintf("card number must be 14-19 digits (got %d)", l)})
	}
	if !passesLuhn(cardNumber) {
		return append(errs, ValidationError{Field: "card_number", Message: "card number failed checksum"})
	}
	return errs
}

func appendExpiryErrors(errs []ValidationError, month, year int, now time.Time) []ValidationError {
	if month < 1 || month > 12 {
		return append(errs, ValidationError{Field: "expiry_month", Message: "expiry month must be between 1 and 12"})
	}
	// Expired means the (year, month) pair is strictly before the current
	// period; a card expiring this month is still good.
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		errs = append(errs, ValidationError{Field: "expiry_date", Message: "card has expired"})
	}
	return errs
}

func appendCVVErrors(errs []ValidationError, cvv string) []ValidationError {
	if cvv == "" {
		return append(errs, ValidationError{Field: "cvv", Message: "cvv is required"})
	}
	if !isDigits(cvv) || len(cvv) < 3 || len(cvv) > 4 {
		return append(errs, ValidationError{Field: "cvv", Message: "cvv must be 3-4 digits"})
	}
	return errs
}

func appendCurrencyErrors(errs []ValidationError, currency string) []ValidationError {
	if _, ok := SupportedCurrencies[currency]; !ok {
		supported := make([]string, 0, len(SupportedCurrencies))
		for code := range SupportedCurrencies {
			supported = append(supported, code)
		}
		sort.Strings(supported)
		return append(errs, ValidationError{
			Field:   "currency",
			Message: "unsupported currency, must be one of: " + strings.Join(supported, ", "),
		})
	}
	return errs
}

// passesLuhn checks the card number with the Luhn algorithm, processing
// digits right to left and doubling every second one.
func passesLuhn(cardNumber string) bool {
	sum := 0
	double := false
	for i := len(cardNumber) - 1; i >= 0; i-- {
		d := int(cardNumber[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
