package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringTokenStore keeps the personal access token in the OS credential
// store. Fallback is used only where no keyring is reachable, such as a
// headless Linux box without a secret service.
type KeyringTokenStore struct {
	Service  string
	User     string
	Fallback FileTokenStore
}

func (s KeyringTokenStore) Get() (string, error) {
	tok, err := keyring.Get(s.Service, s.User)
	if err == nil {
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok, nil
		}
	}
	if s.Fallback.Path == "" {
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("read token from keyring: %w", err)
		}
		return "", nil
	}
	return s.Fallback.Get()
}

// Set writes the keyring and removes any plaintext copy left behind by an
// earlier fallback write.
func (s KeyringTokenStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}
	if err := keyring.Set(s.Service, s.User, token); err != nil {
		if s.Fallback.Path == "" {
			return fmt.Errorf("store token in keyring: %w", err)
		}
		return s.Fallback.Set(token)
	}
	if s.Fallback.Path == "" {
		return nil
	}
	return s.Fallback.Clear()
}

func (s KeyringTokenStore) Clear() error {
	err := keyring.Delete(s.Service, s.User)
	if errors.Is(err, keyring.ErrNotFound) {
		err = nil
	}
	if s.Fallback.Path == "" {
		if err != nil {
			return fmt.Errorf("remove token from keyring: %w", err)
		}
		return nil
	}
	return s.Fallback.Clear()
}
