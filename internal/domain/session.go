package domain

import (
	"fmt"
	"regexp"
	"time"
)

type SessionAction string

const (
	SessionActionStart   SessionAction = "start"
	SessionActionStop    SessionAction = "stop"
	SessionActionLogout  SessionAction = "logout"
	SessionActionRestart SessionAction = "restart"
)

func ParseSessionAction(raw string) (SessionAction, error) {
	switch SessionAction(raw) {
	case SessionActionStart, SessionActionStop, SessionActionLogout, SessionActionRestart:
		return SessionAction(raw), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidAction, raw)
}

var sessionNameRx = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateSessionName makes sure the name is safe to use as a path segment
func ValidateSessionName(name string) error {
	if !sessionNameRx.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionName, name)
	}
	return nil
}

// MaxSessionActionsLimit is the largest number of session actions returned by a single lookup
const MaxSessionActionsLimit = 100

type SessionActionRecord struct {
	ID           string
	SessionName  string
	Action       SessionAction
	StatusCode   int
	ErrorMessage string
	PerformedAt  time.Time
}
