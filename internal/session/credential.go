package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// FlowKind identifies the OAuth2 authorization flow a credential was
// acquired through.
type FlowKind string

const (
	// FlowPKCE is the interactive authorization code flow with PKCE.
	FlowPKCE FlowKind = "pkce"
	// FlowClientCredentials is the machine-to-machine client credentials flow.
	FlowClientCredentials FlowKind = "client_credentials"
)

// Valid reports whether the flow kind is one of the supported flows.
func (f FlowKind) Valid() bool {
	return f == FlowPKCE || f == FlowClientCredentials
}

// Credential is the current token state for one account.
//
// Treated as immutable once stored; a refresh replaces the whole value.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
	Flow         FlowKind  `json:"flow"`
}

// Expired reports whether the access token has expired at the given time.
//
// A zero expiry means the token never expires.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ExpiringWithin reports whether the access token has expired or will
// expire within skew of the given time.
func (c *Credential) ExpiringWithin(now time.Time, skew time.Duration) bool {
	return !c.ExpiresAt.IsZero() && !now.Add(skew).Before(c.ExpiresAt)
}

// Refreshable reports whether an expired credential can be renewed without
// user interaction. Client-credentials tokens carry no refresh token but
// can always be re-requested from the token endpoint.
func (c *Credential) Refreshable() bool {
	return c.RefreshToken != "" || c.Flow == FlowClientCredentials
}

// MissingScopes returns the required scopes absent from the granted set.
func (c *Credential) MissingScopes(required []string) []string {
	var missing []string
	for _, scope := range required {
		if !slices.Contains(c.Scopes, scope) {
			missing = append(missing, scope)
		}
	}
	return missing
}

// ScopeString returns the granted scopes as a sorted space-separated string.
func (c *Credential) ScopeString() string {
	scopes := slices.Clone(c.Scopes)
	slices.Sort(scopes)
	return strings.Join(scopes, " ")
}

// AccountID derives the stable identifier for a persisted credential record
// from the client ID, flow kind, and an optional user identifier.
func AccountID(clientID string, flow FlowKind, user string) string {
	input := fmt.Sprintf("%s:%s", clientID, flow)
	if user != "" {
		input += ":" + user
	}
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Store holds the current credential for an account.
//
// All mutation is atomic with respect to readers: a reader never observes a
// partially written credential. Stores do not validate token semantics;
// that is the flow engine's job.
type Store interface {
	// Current returns the stored credential, or nil if none exists.
	// The returned value must be treated as read-only.
	Current() *Credential

	// Set replaces the stored credential.
	Set(*Credential)

	// Clear removes the stored credential.
	Clear()
}

// PersistentStore is a Store with durable storage across process restarts.
type PersistentStore interface {
	Store

	// Load restores a previously persisted credential. Missing or corrupt
	// records load as "no credential" and never return an error for them.
	Load() error

	// Persist writes the current credential to durable storage.
	Persist() error

	// Delete removes the durable record; used on logout and on
	// unrecoverable refresh failure.
	Delete() error
}

// MemoryStore is an in-process Store.
//
// Writes replace the stored pointer wholesale, so readers holding a
// previously returned credential keep a consistent snapshot.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Current() *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

func (s *MemoryStore) Set(cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
}
