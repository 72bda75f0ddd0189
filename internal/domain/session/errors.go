package session

import "errors"

var (
	ErrNotFound     = errors.New("invalid session")
	ErrInvalidToken = errors.New("invalid session token")
)
