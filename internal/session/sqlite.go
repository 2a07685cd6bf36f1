package session

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore is a PersistentStore backed by the credentials table.
//
// The in-memory copy is authoritative during a session; Load and Persist
// synchronize it with the durable record keyed by the account identifier.
type SQLiteStore struct {
	MemoryStore
	db        *sql.DB
	accountID string
}

// NewSQLiteStore creates a store persisting to db under the given account
// identifier (see [AccountID]).
func NewSQLiteStore(db *sql.DB, accountID string) *SQLiteStore {
	return &SQLiteStore{db: db, accountID: accountID}
}

// Load restores the persisted credential for the account, if any.
//
// A missing or unreadable record loads as "no credential"; Load only
// returns an error for unexpected database failures.
func (s *SQLiteStore) Load() error {
	row := s.db.QueryRow(
		`SELECT flow, access_token, refresh_token, token_type, scopes, expires_at
		 FROM credentials WHERE account_id = ?`, s.accountID)

	var flow, accessToken, refreshToken, tokenType, scopes string
	var expiresAt int64

	err := row.Scan(&flow, &accessToken, &refreshToken, &tokenType, &scopes, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	// A record without an access token or a recognizable flow kind is
	// corrupt; treat it as absent.
	if accessToken == "" || !FlowKind(flow).Valid() {
		return nil
	}

	cred := &Credential{
		AccessToken:  accessToken,
		TokenType:    tokenType,
		RefreshToken: refreshToken,
		Flow:         FlowKind(flow),
	}
	if expiresAt > 0 {
		cred.ExpiresAt = time.Unix(expiresAt, 0)
	}
	if scopes != "" {
		cred.Scopes = strings.Fields(scopes)
	}

	s.MemoryStore.Set(cred)
	return nil
}

// Persist writes the current credential to the durable record.
//
// Persisting with no current credential deletes the record.
func (s *SQLiteStore) Persist() error {
	cred := s.Current()
	if cred == nil {
		return s.Delete()
	}

	var expiresAt int64
	if !cred.ExpiresAt.IsZero() {
		expiresAt = cred.ExpiresAt.Unix()
	}

	_, err := s.db.Exec(
		`INSERT INTO credentials (account_id, flow, access_token, refresh_token, token_type, scopes, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(account_id) DO UPDATE SET
		   flow = excluded.flow,
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   token_type = excluded.token_type,
		   scopes = excluded.scopes,
		   expires_at = excluded.expires_at,
		   updated_at = CURRENT_TIMESTAMP`,
		s.accountID, string(cred.Flow), cred.AccessToken, cred.RefreshToken,
		cred.TokenType, cred.ScopeString(), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	return nil
}

// Delete removes the durable record for the account.
func (s *SQLiteStore) Delete() error {
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE account_id = ?`, s.accountID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
