package domain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Result is the uniform outcome of a call to the session API.
//
// Failures are encoded in the value instead of being returned as errors, so a
// single Result can be shared between every caller waiting on the same request.
type Result struct {
	// StatusCode is 0 when no response was received
	StatusCode int
	// Payload is nil when the body was absent or not valid JSON
	Payload      json.RawMessage
	ErrorMessage string
	// Aborted is set when the request was cancelled before completing.
	// Aborted results should not be retried automatically.
	Aborted bool
	// Unavailable is set when the request was never sent because the session
	// API is being throttled locally.
	Unavailable bool
}

// Transient reports whether the result says nothing about the session itself,
// only about this attempt. Transient results are not cached.
func (r Result) Transient() bool {
	return r.Aborted || r.Unavailable
}

func (r Result) Failed() bool {
	return r.ErrorMessage != ""
}

// NoProfile reports whether the session API signalled that the session has no
// profile yet. This is a normal outcome, not a failure.
func (r Result) NoProfile() bool {
	return r.StatusCode == http.StatusUnprocessableEntity && !r.Failed()
}

func ResultFromError(err error) Result {
	if err == nil {
		err = errors.New("unknown error")
	}

	aborted := errors.Is(err, context.Canceled) || errors.Is(err, ErrAborted)

	return Result{
		StatusCode:   0,
		Payload:      nil,
		ErrorMessage: err.Error(),
		Aborted:      aborted,
		Unavailable:  errors.Is(err, ErrTemporarilyUnavailable),
	}
}
