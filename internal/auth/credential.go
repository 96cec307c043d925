package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"vertical-coach/internal/store"
)

// DefaultCredentialKey is the storage key of the credential record
const DefaultCredentialKey = "strava_auth"

// Credential is the persisted OAuth token pair
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // Unix seconds
}

// KV is the persistence substrate: opaque values under string keys.
// Get returns store.ErrNotFound for a missing key.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// CredentialStore persists one Credential under a fixed key.
// It does not interpret token contents.
type CredentialStore struct {
	kv  KV
	key string
	log *logrus.Entry
}

// NewCredentialStore creates a CredentialStore over kv.
// An empty key selects DefaultCredentialKey.
func NewCredentialStore(kv KV, key string) *CredentialStore {
	if key == "" {
		key = DefaultCredentialKey
	}
	return &CredentialStore{
		kv:  kv,
		key: key,
		log: logrus.WithField("component", "credential_store"),
	}
}

// Load returns the stored credential, or ErrNoCredential.
// A malformed record is purged and reported as ErrNoCredential.
func (s *CredentialStore) Load() (*Credential, error) {
	data, err := s.kv.Get(s.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}

	cred, err := parseCredential(data)
	if err != nil {
		s.log.WithError(err).Warn("purging unreadable credential")
		if delErr := s.kv.Delete(s.key); delErr != nil {
			return nil, fmt.Errorf("purging malformed credential: %w", delErr)
		}
		return nil, ErrNoCredential
	}

	return cred, nil
}

// Save replaces the stored credential
func (s *CredentialStore) Save(cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	return s.kv.Set(s.key, data)
}

// Clear removes the stored credential. Clearing an empty store is a no-op.
func (s *CredentialStore) Clear() error {
	return s.kv.Delete(s.key)
}

func parseCredential(data []byte) (*Credential, error) {
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	if cred.AccessToken == "" || cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing token", ErrMalformedCredential)
	}
	return &cred, nil
}
