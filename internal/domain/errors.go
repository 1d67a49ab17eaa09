package domain

import "errors"

var (
	ErrAborted                = errors.New("request aborted")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
	ErrInvalidSessionName     = errors.New("invalid session name")
	ErrInvalidAction          = errors.New("invalid session action")
	ErrEmptyKey               = errors.New("empty cache key")
	ErrSessionActionsNotFound = errors.New("no session actions found")
	ErrMalformedProfile       = errors.New("malformed profile")
)
