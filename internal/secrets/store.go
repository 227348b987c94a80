// Package secrets stores Notion API tokens in the system keyring.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/adrg/xdg"
)

const (
	serviceName       = "notion-cli"
	tokenKeyPrefix    = "token:"
	defaultAccountKey = "default_account"

	// Environment overrides for backend selection.
	envKeyringBackend  = "NOTION_KEYRING_BACKEND"
	envKeyringPassword = "NOTION_KEYRING_PASSWORD"

	keyringOpenTimeout = 5 * time.Second
)

// ErrTokenNotFound is returned when no token is stored for a profile.
var ErrTokenNotFound = errors.New("token not found")

var errKeyringTimeout = errors.New("timed out opening keyring")

// keyringOpenFunc is replaced in tests.
var keyringOpenFunc = keyring.Open

// Token is a stored credential.
type Token struct {
	Profile    string    `json:"profile"`
	APIToken   string    `json:"api_token"`
	DatabaseID string    `json:"database_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists tokens by profile name.
type Store interface {
	Keys() ([]string, error)
	SetToken(profile string, tok Token) error
	GetToken(profile string) (Token, error)
	DeleteToken(profile string) error
	ListTokens() ([]Token, error)
	GetDefaultAccount() (string, error)
	SetDefaultAccount(profile string) error
}

// KeyringStore is a Store backed by 99designs/keyring.
type KeyringStore struct {
	ring keyring.Keyring
}

// KeyringBackendInfo describes the configured backend and where the setting
// came from.
type KeyringBackendInfo struct {
	Value  string
	Source string
}

// configBackend is the keyring_backend config value, consulted when the
// environment does not choose a backend.
var configBackend string

// UseConfigBackend records the configured backend.
func UseConfigBackend(value string) {
	configBackend = strings.ToLower(strings.TrimSpace(value))
}

// ResolveKeyringBackend reads NOTION_KEYRING_BACKEND, then the configured
// backend, defaulting to "auto".
func ResolveKeyringBackend() KeyringBackendInfo {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(envKeyringBackend))); v != "" {
		return KeyringBackendInfo{Value: v, Source: "env"}
	}
	if configBackend != "" {
		return KeyringBackendInfo{Value: configBackend, Source: "config"}
	}
	return KeyringBackendInfo{Value: "auto", Source: "default"}
}

// OpenDefault opens the store with the backend chosen from the environment.
func OpenDefault() (Store, error) {
	info := ResolveKeyringBackend()
	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")

	cfg, err := keyringConfig(runtime.GOOS, info, dbusAddr)
	if err != nil {
		return nil, err
	}

	var ring keyring.Keyring
	if shouldUseKeyringTimeout(runtime.GOOS, info, dbusAddr) {
		ring, err = openKeyringWithTimeout(cfg, keyringOpenTimeout)
	} else {
		ring, err = keyringOpenFunc(cfg)
	}
	if err != nil {
		return nil, wrapKeychainError(err)
	}

	return &KeyringStore{ring: ring}, nil
}

func keyringConfig(goos string, info KeyringBackendInfo, dbusAddr string) (keyring.Config, error) {
	cfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(xdg.ConfigHome, "notion", "keyring"),
		FilePasswordFunc:         filePassword,
	}

	switch {
	case info.Value == "file" || shouldForceFileBackend(goos, info, dbusAddr):
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	case info.Value == "keychain":
		switch goos {
		case "darwin":
			cfg.AllowedBackends = []keyring.BackendType{keyring.KeychainBackend}
		case "windows":
			cfg.AllowedBackends = []keyring.BackendType{keyring.WinCredBackend}
		default:
			cfg.AllowedBackends = []keyring.BackendType{keyring.SecretServiceBackend}
		}
	case info.Value == "auto":
	default:
		return cfg, fmt.Errorf("invalid %s %q (expected auto, keychain, or file)", envKeyringBackend, info.Value)
	}

	return cfg, nil
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(envKeyringPassword); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// shouldForceFileBackend reports whether auto selection must fall back to
// the file backend: on Linux without a D-Bus session there is no secret
// service to talk to.
func shouldForceFileBackend(goos string, info KeyringBackendInfo, dbusAddr string) bool {
	return goos == "linux" && info.Value == "auto" && dbusAddr == ""
}

// shouldUseKeyringTimeout reports whether opening may hang on a D-Bus secret
// service that never answers.
func shouldUseKeyringTimeout(goos string, info KeyringBackendInfo, dbusAddr string) bool {
	return goos == "linux" && info.Value == "auto" && dbusAddr != ""
}

type openResult struct {
	ring keyring.Keyring
	err  error
}

func openKeyringWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	ch := make(chan openResult, 1)
	go func() {
		ring, err := keyringOpenFunc(cfg)
		ch <- openResult{ring: ring, err: err}
	}()

	select {
	case res := <-ch:
		return res.ring, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %s; the secret service may be unresponsive.\n"+
			"Set %s=file to use the encrypted file backend instead", errKeyringTimeout, timeout, envKeyringBackend)
	}
}

// wrapKeychainError adds recovery steps to locked keychain errors.
func wrapKeychainError(err error) error {
	if err == nil {
		return nil
	}
	if IsKeychainLockedError(err.Error()) {
		return fmt.Errorf("%w\n\nThe macOS keychain is locked. Unlock it with:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db", err)
	}
	return err
}

func (s *KeyringStore) Keys() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, wrapKeychainError(err)
	}
	return keys, nil
}

func (s *KeyringStore) SetToken(profile string, tok Token) error {
	profile = normalizeProfile(profile)
	tok.Profile = profile
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	return wrapKeychainError(s.ring.Set(keyring.Item{
		Key:   tokenKeyPrefix + profile,
		Data:  data,
		Label: serviceName + " (" + profile + ")",
	}))
}

func (s *KeyringStore) GetToken(profile string) (Token, error) {
	item, err := s.ring.Get(tokenKeyPrefix + normalizeProfile(profile))
	if err != nil {
		if isMissingKey(err) {
			return Token{}, fmt.Errorf("%w for profile %q", ErrTokenNotFound, profile)
		}
		return Token{}, wrapKeychainError(err)
	}

	var tok Token
	if err := json.Unmarshal(item.Data, &tok); err != nil {
		return Token{}, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

// DeleteToken removes the profile's token. Backends disagree on how a
// missing key is reported on Remove, so presence is checked with Get first.
func (s *KeyringStore) DeleteToken(profile string) error {
	key := tokenKeyPrefix + normalizeProfile(profile)
	if _, err := s.ring.Get(key); err != nil {
		if isMissingKey(err) {
			return fmt.Errorf("%w for profile %q", ErrTokenNotFound, profile)
		}
		return wrapKeychainError(err)
	}

	err := s.ring.Remove(key)
	if isMissingKey(err) {
		return fmt.Errorf("%w for profile %q", ErrTokenNotFound, profile)
	}
	return wrapKeychainError(err)
}

// isMissingKey reports a key that does not exist. The file backend returns
// an fs.PathError rather than keyring.ErrKeyNotFound.
func isMissingKey(err error) bool {
	return errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist)
}

func (s *KeyringStore) ListTokens() ([]Token, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	tokens := make([]Token, 0, len(keys))
	for _, k := range keys {
		profile, ok := strings.CutPrefix(k, tokenKeyPrefix)
		if !ok {
			continue
		}
		tok, err := s.GetToken(profile)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (s *KeyringStore) GetDefaultAccount() (string, error) {
	item, err := s.ring.Get(defaultAccountKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", wrapKeychainError(err)
	}
	return string(item.Data), nil
}

func (s *KeyringStore) SetDefaultAccount(profile string) error {
	return wrapKeychainError(s.ring.Set(keyring.Item{
		Key:  defaultAccountKey,
		Data: []byte(normalizeProfile(profile)),
	}))
}

func normalizeProfile(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "default"
	}
	return profile
}
