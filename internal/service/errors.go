package service

import "errors"

var (
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrRateLimited     = errors.New("too many submissions, try again later")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrActionNotAllowed: отмена и продление только для подтверждённых броней
	ErrActionNotAllowed = errors.New("action not allowed for this reservation")
)
