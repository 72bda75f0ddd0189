package pairing

import "errors"

var (
	ErrInvalidToken   = errors.New("invalid or expired pairing token")
	ErrNotFound       = errors.New("pairing not found")
	ErrConfirmFailed  = errors.New("failed to confirm pairing")
	ErrInvalidPayload = errors.New("invalid sync payload")
)
