package domain

import "errors"

var (
	// ErrDuplicatePaymentID signals a broken invariant: the engine generates
	// collision-resistant identifiers, so hitting this means a bug in id
	// generation, not bad input.
	ErrDuplicatePaymentID = errors.New("payment id already exists")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrIdempotencyKeyUsed = errors.New("idempotency key already used")
	ErrStorageUnavailable = errors.New("payment store is unavailable")
	ErrBankUnavailable    = errors.New("acquiring bank is unavailable")
)
