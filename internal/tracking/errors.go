package tracking

import "errors"

var (
	ErrNotFound   = errors.New("tracking session not found")
	ErrValidation = errors.New("invalid tracking input")
)
