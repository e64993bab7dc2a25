// Package notify maps backend notifications to how a station presents them.
package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Notification types sent by backend rule endpoints.
const (
	TypeInfo         = "INFO"
	TypeSuccess      = "SUCCESS"
	TypeWarning      = "WARNING"
	TypeError        = "ERROR"
	TypeConfirmation = "CONFIRMATION"
	TypeSystem       = "SYSTEM"
)

// Notification is the backend's business outcome envelope.
type Notification struct {
	StatusCode StatusCode `json:"statusCode,omitempty"`
	Type       string     `json:"notificationType"`
	Code       int        `json:"code,omitempty"`
	Name       string     `json:"name,omitempty"`
	Message    string     `json:"message"`
	Details    Lines      `json:"details,omitempty"`
}

// NormalizedType folds aliases and casing to one of the Type constants. Unknown types become INFO.
func (n Notification) NormalizedType() string {
	return NormalizeType(n.Type)
}

// NormalizeType folds aliases and casing to one of the Type constants.
func NormalizeType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case TypeSuccess:
		return TypeSuccess
	case "WARN", TypeWarning:
		return TypeWarning
	case TypeError:
		return TypeError
	case TypeConfirmation:
		return TypeConfirmation
	case TypeSystem:
		return TypeSystem
	default:
		return TypeInfo
	}
}

// StatusCode accepts both `200` and `"200"`.
type StatusCode int

func (s *StatusCode) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse status code %s: %w", string(data), err)
	}
	*s = StatusCode(code)
	return nil
}

// Lines accepts a single string or an array of strings.
type Lines []string

func (l *Lines) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one *string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("parse details: %w", err)
	}
	if one == nil || *one == "" {
		*l = nil
		return nil
	}
	*l = Lines{*one}
	return nil
}

// Has reports whether any notification normalizes to one of types.
func Has(notifications []Notification, types ...string) bool {
	for _, n := range notifications {
		t := n.NormalizedType()
		for _, want := range types {
			if t == want {
				return true
			}
		}
	}
	return false
}

// First returns the first notification of type t.
func First(notifications []Notification, t string) (Notification, bool) {
	for _, n := range notifications {
		if n.NormalizedType() == t {
			return n, true
		}
	}
	return Notification{}, false
}
