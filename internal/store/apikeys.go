package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const apiKeysFileName = "api_keys.json"

// APIKeyStore persists provider API keys keyed by a lowercased provider
// name. Lookups are cached in memory; unlike the original implementation,
// failed lookups are NOT cached (see DESIGN.md) so a key added to the file
// after process start — or restored after a typo was corrected — is picked
// up on the very next call instead of sticking to a stale "absent" result
// for the rest of the process lifetime.
type APIKeyStore struct {
	path string

	mu    sync.Mutex
	cache map[string]string
}

func NewAPIKeyStore(appDataDir string) *APIKeyStore {
	return &APIKeyStore{
		path:  filepath.Join(appDataDir, apiKeysFileName),
		cache: make(map[string]string),
	}
}

func normalizeProvider(provider string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(provider))
	if trimmed == "" {
		return "", fmt.Errorf("provider name must not be empty")
	}
	return trimmed, nil
}

func (s *APIKeyStore) GetAPIKey(provider string) (string, bool, error) {
	account, err := normalizeProvider(provider)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	if cached, ok := s.cache[account]; ok {
		s.mu.Unlock()
		return cached, true, nil
	}
	s.mu.Unlock()

	keys, err := s.readKeys()
	if err != nil {
		return "", false, err
	}

	key, ok := keys[account]
	if ok {
		s.mu.Lock()
		s.cache[account] = key
		s.mu.Unlock()
	}
	return key, ok, nil
}

func (s *APIKeyStore) HasAPIKey(provider string) (bool, error) {
	_, ok, err := s.GetAPIKey(provider)
	return ok, err
}

func (s *APIKeyStore) SetAPIKey(provider, key string) error {
	account, err := normalizeProvider(provider)
	if err != nil {
		return err
	}
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return fmt.Errorf("api key must not be empty")
	}

	keys, err := s.readKeys()
	if err != nil {
		return err
	}
	keys[account] = normalizedKey
	if err := s.writeKeys(keys); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[account] = normalizedKey
	s.mu.Unlock()
	return nil
}

func (s *APIKeyStore) DeleteAPIKey(provider string) error {
	account, err := normalizeProvider(provider)
	if err != nil {
		return err
	}

	keys, err := s.readKeys()
	if err != nil {
		return err
	}
	delete(keys, account)
	if err := s.writeKeys(keys); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, account)
	s.mu.Unlock()
	return nil
}

func (s *APIKeyStore) readKeys() (map[string]string, error) {
	if err := ensureFileExists(s.path, []byte("{}")); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read api key file %q: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return make(map[string]string), nil
	}

	keys := make(map[string]string)
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("parse api key file %q: %w", s.path, err)
	}
	return keys, nil
}

func (s *APIKeyStore) writeKeys(keys map[string]string) error {
	raw, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize api key file: %w", err)
	}
	return writeAtomicFile(s.path, raw)
}
