package session

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/muse/internal/shared"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSQLiteStore(t *testing.T) {
	accountID := AccountID("client", FlowPKCE, "")

	t.Run("Round Trip", func(t *testing.T) {
		db := newTestDB(t)

		store := NewSQLiteStore(db, accountID)
		store.Set(&Credential{
			AccessToken:  "access",
			TokenType:    "Bearer",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
			Scopes:       []string{"user-library-read", "user-read-email"},
			Flow:         FlowPKCE,
		})
		if err := store.Persist(); err != nil {
			t.Fatalf("failed to persist: %v", err)
		}

		restored := NewSQLiteStore(db, accountID)
		if err := restored.Load(); err != nil {
			t.Fatalf("failed to load: %v", err)
		}

		cred := restored.Current()
		if cred == nil {
			t.Fatal("expected a restored credential")
		}
		if cred.AccessToken != "access" || cred.RefreshToken != "refresh" {
			t.Errorf("unexpected tokens: %+v", cred)
		}
		if cred.Flow != FlowPKCE {
			t.Errorf("unexpected flow: %q", cred.Flow)
		}
		if len(cred.Scopes) != 2 {
			t.Errorf("unexpected scopes: %v", cred.Scopes)
		}
		if cred.ExpiresAt.IsZero() {
			t.Error("expected expiry to survive the round trip")
		}
	})

	t.Run("Missing Record Loads As Absent", func(t *testing.T) {
		db := newTestDB(t)

		store := NewSQLiteStore(db, accountID)
		if err := store.Load(); err != nil {
			t.Fatalf("expected missing record to load cleanly, got %v", err)
		}
		if store.Current() != nil {
			t.Error("expected no credential after loading a missing record")
		}
	})

	t.Run("Corrupt Record Loads As Absent", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.Exec(
			`INSERT INTO credentials (account_id, flow, access_token, refresh_token, token_type, scopes, expires_at)
			 VALUES (?, 'carrier_pigeon', 'tok', '', 'Bearer', '', 0)`, accountID)
		if err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}

		store := NewSQLiteStore(db, accountID)
		if err := store.Load(); err != nil {
			t.Fatalf("expected corrupt record to load cleanly, got %v", err)
		}
		if store.Current() != nil {
			t.Error("expected corrupt record to be treated as absent")
		}
	})

	t.Run("Persist Upserts", func(t *testing.T) {
		db := newTestDB(t)

		store := NewSQLiteStore(db, accountID)
		store.Set(&Credential{AccessToken: "first", Flow: FlowPKCE})
		if err := store.Persist(); err != nil {
			t.Fatal(err)
		}

		store.Set(&Credential{AccessToken: "second", Flow: FlowPKCE})
		if err := store.Persist(); err != nil {
			t.Fatal(err)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("expected one record after upsert, got %d", count)
		}

		var token string
		if err := db.QueryRow(`SELECT access_token FROM credentials WHERE account_id = ?`, accountID).Scan(&token); err != nil {
			t.Fatal(err)
		}
		if token != "second" {
			t.Errorf("expected the replacement token, got %q", token)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := newTestDB(t)

		store := NewSQLiteStore(db, accountID)
		store.Set(&Credential{AccessToken: "tok", Flow: FlowPKCE})
		if err := store.Persist(); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete(); err != nil {
			t.Fatal(err)
		}

		restored := NewSQLiteStore(db, accountID)
		if err := restored.Load(); err != nil {
			t.Fatal(err)
		}
		if restored.Current() != nil {
			t.Error("expected deleted record not to load")
		}
	})

	t.Run("Accounts Are Isolated", func(t *testing.T) {
		db := newTestDB(t)

		alice := NewSQLiteStore(db, AccountID("client", FlowPKCE, "alice"))
		alice.Set(&Credential{AccessToken: "alice-tok", Flow: FlowPKCE})
		if err := alice.Persist(); err != nil {
			t.Fatal(err)
		}

		bob := NewSQLiteStore(db, AccountID("client", FlowPKCE, "bob"))
		if err := bob.Load(); err != nil {
			t.Fatal(err)
		}
		if bob.Current() != nil {
			t.Error("expected another account's credential not to load")
		}
	})
}
