package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/emmett/dictate/internal/oauth"
)

const authCredentialsFileName = "auth_credentials.json"

// AuthMethod identifies how the active transcription provider is
// authenticated.
type AuthMethod string

const (
	AuthMethodNone         AuthMethod = "none"
	AuthMethodAPIKey       AuthMethod = "api_key"
	AuthMethodChatGPTOAuth AuthMethod = "chatgpt_oauth"
)

func ParseAuthMethod(value string) (AuthMethod, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "none", "":
		return AuthMethodNone, nil
	case "api_key":
		return AuthMethodAPIKey, nil
	case "chatgpt_oauth":
		return AuthMethodChatGPTOAuth, nil
	default:
		return "", fmt.Errorf("unsupported auth method %q: expected none, api_key, or chatgpt_oauth", value)
	}
}

// AuthCredentials is the on-disk shape of auth_credentials.json.
type AuthCredentials struct {
	AuthMethod   AuthMethod `json:"authMethod"`
	APIKey       *string    `json:"apiKey,omitempty"`
	AccessToken  *string    `json:"accessToken,omitempty"`
	RefreshToken *string    `json:"refreshToken,omitempty"`
	ExpiresAt    *int64     `json:"expiresAt,omitempty"`
	AccountID    *string    `json:"accountId,omitempty"`
}

// ChatGPTCredentials is the subset of AuthCredentials needed to call the
// ChatGPT-backed transcription backend.
type ChatGPTCredentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	AccountID    string
}

const openAIProvider = "openai"

// AuthStore tracks which authentication method is active and, when it is
// ChatGPT OAuth, the current token set.
type AuthStore struct {
	path string
	mu   sync.Mutex
}

func NewAuthStore(appDataDir string) *AuthStore {
	return &AuthStore{path: filepath.Join(appDataDir, authCredentialsFileName)}
}

func (s *AuthStore) Current() (AuthCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCredentials()
}

func (s *AuthStore) CurrentAuthMethod() (AuthMethod, error) {
	creds, err := s.Current()
	if err != nil {
		return "", err
	}
	return creds.AuthMethod, nil
}

// EffectiveAuthMethod promotes an implicit api_key method the first time a
// key is found in apiKeys but auth_credentials.json still says "none" —
// e.g. a key set before auth tracking existed.
func (s *AuthStore) EffectiveAuthMethod(apiKeys *APIKeyStore) (AuthMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readCredentials()
	if err != nil {
		return "", err
	}
	if creds.AuthMethod == AuthMethodNone {
		has, err := apiKeys.HasAPIKey(openAIProvider)
		if err != nil {
			return "", err
		}
		if has {
			creds.AuthMethod = AuthMethodAPIKey
			if err := s.writeCredentials(creds); err != nil {
				return "", err
			}
		}
	}
	return creds.AuthMethod, nil
}

func (s *AuthStore) SetAuthMethod(method AuthMethod) (AuthCredentials, error) {
	return s.withUpdate(func(c *AuthCredentials) error {
		c.AuthMethod = method
		return nil
	})
}

func (s *AuthStore) ChatGPTCredentials() (*ChatGPTCredentials, error) {
	creds, err := s.Current()
	if err != nil {
		return nil, err
	}
	if creds.AccessToken == nil || creds.RefreshToken == nil || creds.ExpiresAt == nil || creds.AccountID == nil {
		return nil, nil
	}
	return &ChatGPTCredentials{
		AccessToken:  *creds.AccessToken,
		RefreshToken: *creds.RefreshToken,
		ExpiresAt:    *creds.ExpiresAt,
		AccountID:    *creds.AccountID,
	}, nil
}

func (s *AuthStore) UpdateChatGPTTokens(accessToken, refreshToken string, expiresAt int64, accountID string) error {
	_, err := s.withUpdate(func(c *AuthCredentials) error {
		c.AuthMethod = AuthMethodChatGPTOAuth
		c.AccessToken = &accessToken
		c.RefreshToken = &refreshToken
		c.ExpiresAt = &expiresAt
		c.AccountID = &accountID
		return nil
	})
	return err
}

func (s *AuthStore) withUpdate(mutate func(*AuthCredentials) error) (AuthCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readCredentials()
	if err != nil {
		return AuthCredentials{}, err
	}
	if err := mutate(&creds); err != nil {
		return AuthCredentials{}, err
	}
	if err := s.writeCredentials(creds); err != nil {
		return AuthCredentials{}, err
	}
	return creds, nil
}

func (s *AuthStore) readCredentials() (AuthCredentials, error) {
	if err := ensureFileExists(s.path, []byte(`{"authMethod":"none"}`)); err != nil {
		return AuthCredentials{}, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return AuthCredentials{}, fmt.Errorf("read auth credentials file %q: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return AuthCredentials{AuthMethod: AuthMethodNone}, nil
	}

	creds := AuthCredentials{AuthMethod: AuthMethodNone}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return AuthCredentials{}, fmt.Errorf("parse auth credentials file %q: %w", s.path, err)
	}
	return creds, nil
}

func (s *AuthStore) writeCredentials(creds AuthCredentials) error {
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize auth credentials: %w", err)
	}
	return writeAtomicFile(s.path, raw)
}

// NowEpochSeconds returns the current Unix time, used for token expiry
// comparisons; kept as a function (not a bare time.Now call site) so tests
// can reason about it explicitly, mirroring now_epoch_seconds in the
// original auth store.
func NowEpochSeconds() int64 {
	return nowFunc().Unix()
}

// RefreshIfExpired refreshes the stored ChatGPT OAuth token when it is
// expired or within 60 seconds of expiring, persisting the new token set
// and returning the bearer access token to use right now. If the token is
// still valid it is returned unchanged without a network call.
func (s *AuthStore) RefreshIfExpired(ctx context.Context) (string, error) {
	creds, err := s.ChatGPTCredentials()
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", fmt.Errorf("missing ChatGPT OAuth credentials; please login again")
	}

	if creds.ExpiresAt > NowEpochSeconds()+60 {
		return creds.AccessToken, nil
	}

	refreshed, err := oauth.RefreshAccessToken(ctx, creds.RefreshToken)
	if err != nil {
		return "", err
	}

	refreshToken := refreshed.RefreshToken
	if refreshToken == "" {
		refreshToken = creds.RefreshToken
	}
	accountID := refreshed.AccountID
	if accountID == "" {
		accountID = creds.AccountID
	}

	if err := s.UpdateChatGPTTokens(refreshed.AccessToken, refreshToken, refreshed.ExpiresAt, accountID); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}
