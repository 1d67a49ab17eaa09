package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Profile is the WhatsApp profile linked to a session
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type rawProfile struct {
	ID      json.RawMessage `json:"id"`
	Name    string          `json:"name"`
	Picture string          `json:"picture"`
}

// ParseProfile reads a profile from a session API payload. Numeric ids are converted to strings.
func ParseProfile(payload json.RawMessage) (Profile, error) {
	if len(payload) == 0 {
		return Profile{}, fmt.Errorf("%w: empty payload", ErrMalformedProfile)
	}

	var raw rawProfile
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrMalformedProfile, err)
	}

	id, err := parseProfileID(raw.ID)
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		ID:      id,
		Name:    raw.Name,
		Picture: raw.Picture,
	}, nil
}

func parseProfileID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrMalformedProfile)
	}

	var id string
	if err := json.Unmarshal(trimmed, &id); err == nil {
		if strings.TrimSpace(id) == "" {
			return "", fmt.Errorf("%w: empty id", ErrMalformedProfile)
		}
		return id, nil
	}

	var number json.Number
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&number); err != nil {
		return "", fmt.Errorf("%w: id is neither a string nor a number", ErrMalformedProfile)
	}
	return number.String(), nil
}
