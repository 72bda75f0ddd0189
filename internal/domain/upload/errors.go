package upload

import "errors"

var (
	ErrInvalidToken   = errors.New("invalid storage token")
	ErrMissingFile    = errors.New("no file part")
	ErrEmptySelection = errors.New("no selected file")
	ErrNotFound       = errors.New("file not found")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
)
