// Package sso models the campus single sign-on assertion the chat surface
// receives. Identity is established before the conversation starts and is
// never taken from conversational input.
package sso

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidUsername = errors.New("invalid sso username")

// Identity is an authenticated SSO session.
type Identity struct {
	Username         string `json:"username"`
	AssertedAtUnixMs int64  `json:"asserted_at_unix_ms"`
}

// Assert validates and normalizes an SSO username into an Identity.
// Usernames are lowercase alphanumeric with optional dots, 2-32 runes.
func Assert(username string) (*Identity, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if len(u) < 2 || len(u) > 32 {
		return nil, ErrInvalidUsername
	}
	for _, r := range u {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.':
		default:
			return nil, ErrInvalidUsername
		}
	}
	return &Identity{Username: u, AssertedAtUnixMs: time.Now().UnixMilli()}, nil
}
