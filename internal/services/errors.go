package services

import "errors"

// Common service errors
var (
	ErrAccessDenied      = errors.New("access denied")
	ErrUnknownStatus     = errors.New("unknown delivery status")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrValidation        = errors.New("validation failed")
)
