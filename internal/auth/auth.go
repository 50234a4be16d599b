package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Mode string

const (
	ModeSession Mode = "session"
	ModePAT     Mode = "pat"
)

func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "session":
		return ModeSession, true
	case "pat", "token":
		return ModePAT, true
	}
	return "", false
}

type Reason string

const (
	ReasonNotConfigured Reason = "not configured"
	ReasonNotGranted    Reason = "not granted"
)

var (
	ErrNotConfigured = errors.New("personal access token not configured")
	ErrNotGranted    = errors.New("GitHub session not granted")
)

// NoAuthError is returned when no token could be resolved for the active
// mode.
type NoAuthError struct {
	Reason Reason
	Err    error
}

func (e *NoAuthError) Error() string {
	base := ErrNotConfigured
	if e.Reason == ReasonNotGranted {
		base = ErrNotGranted
	}
	if e.Err != nil {
		return base.Error() + ": " + e.Err.Error()
	}
	return base.Error()
}

func (e *NoAuthError) Unwrap() error { return e.Err }

func (e *NoAuthError) Is(target error) bool {
	switch target {
	case ErrNotConfigured:
		return e.Reason == ReasonNotConfigured
	case ErrNotGranted:
		return e.Reason == ReasonNotGranted
	}
	return false
}

type TokenStore interface {
	Get() (string, error)
	Set(token string) error
}

type SessionBroker interface {
	Session(ctx context.Context) (string, error)
}

// Provider resolves the token for the persisted auth mode. The two modes
// never fall back to each other.
type Provider struct {
	Mode    func() Mode
	Tokens  TokenStore
	Session SessionBroker
	// Remediate is consulted at most once per resolution when token mode
	// has nothing stored. A non-empty result is saved before retrying.
	Remediate func(ctx context.Context) (string, error)
}

func (p Provider) Token(ctx context.Context) (string, error) {
	mode := ModeSession
	if p.Mode != nil {
		mode = p.Mode()
	}
	if mode == ModePAT {
		return p.pat(ctx)
	}
	return p.session(ctx)
}

func (p Provider) pat(ctx context.Context) (string, error) {
	if p.Tokens == nil {
		return "", &NoAuthError{Reason: ReasonNotConfigured}
	}
	token, err := p.Tokens.Get()
	if err != nil {
		return "", &NoAuthError{Reason: ReasonNotConfigured, Err: err}
	}
	if token != "" {
		return token, nil
	}
	if p.Remediate == nil {
		return "", &NoAuthError{Reason: ReasonNotConfigured}
	}
	entered, err := p.Remediate(ctx)
	if err != nil {
		return "", &NoAuthError{Reason: ReasonNotConfigured, Err: err}
	}
	if entered = strings.TrimSpace(entered); entered != "" {
		if err := p.Tokens.Set(entered); err != nil {
			return "", fmt.Errorf("store token: %w", err)
		}
	}
	token, err = p.Tokens.Get()
	if err != nil || token == "" {
		return "", &NoAuthError{Reason: ReasonNotConfigured, Err: err}
	}
	return token, nil
}

func (p Provider) session(ctx context.Context) (string, error) {
	if p.Session == nil {
		return "", &NoAuthError{Reason: ReasonNotGranted}
	}
	token, err := p.Session.Session(ctx)
	if err != nil {
		return "", &NoAuthError{Reason: ReasonNotGranted, Err: err}
	}
	if token == "" {
		return "", &NoAuthError{Reason: ReasonNotGranted}
	}
	return token, nil
}
