// Package session implements opaque server-side sessions backed by redis.
// The browser only ever holds the random session id; all principal state
// lives under a redis key with a sliding TTL.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopcore/backend/internal/domain"
)

// DefaultTTL is the sliding session lifetime.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "session:"

// ErrNotFound is returned when a session id does not resolve, whether it
// expired, was destroyed, or never existed.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state for one authenticated browser.
type Session struct {
	ID        string           `json:"-"`
	Principal domain.Principal `json:"principal"`
	CSRFToken string           `json:"csrf_token"`
	CreatedAt time.Time        `json:"created_at"`
}

// Store persists sessions in redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// TTL returns the configured sliding lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create starts a new session for the given principal, generating a fresh
// session id and CSRF token.
func (s *Store) Create(ctx context.Context, principal domain.Principal) (*Session, error) {
	id, err := randomToken()
	if err != nil {
		return nil, err
	}
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        id,
		Principal: principal,
		CSRFToken: csrf,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get resolves a session id and slides its TTL forward. Expired and unknown
// ids both return ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	sess.ID = id

	if err := s.client.Expire(ctx, keyPrefix+id, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("extending session: %w", err)
	}
	return &sess, nil
}

// Destroy removes a session. Destroying a missing session is not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// Regenerate replaces a session with one under a fresh id and CSRF token,
// carrying the given principal snapshot. The old id stops resolving.
func (s *Store) Regenerate(ctx context.Context, oldID string, principal domain.Principal) (*Session, error) {
	sess, err := s.Create(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := s.Destroy(ctx, oldID); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdatePrincipal rewrites the principal snapshot for an existing session,
// keeping its id and CSRF token.
func (s *Store) UpdatePrincipal(ctx context.Context, id string, principal domain.Principal) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Principal = principal
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) write(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
