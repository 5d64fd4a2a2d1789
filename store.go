package discord

import (
	"context"
	"sync"
)

// Store is the persistent key-value surface the hosting application provides.
// The channel keeps credentials, the cached application ID, and per-conversation
// interaction tokens here.
//
// Get reports whether the key was present; a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Storage keys, shared with the tark host.
const (
	storageKeyApplicationID    = "discord_application_id"
	storageKeyPublicKey        = "discord_public_key"
	storageKeyBotToken         = "discord_bot_token"
	storageKeyOAuthTokens      = "discord_oauth_tokens"
	storageKeyInteractionToken = "discord_interaction_token:"
)

// MemoryStore is an in-process Store for tests and single-process hosts.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
