package session

import (
	"fmt"
	"strings"

	"github.com/desertthunder/muse/internal/shared"
)

// ScopeError reports the authorization scopes an operation required but the
// current credential does not grant.
type ScopeError struct {
	Operation string
	Missing   []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s requires the %q authorization scope(s)",
		e.Operation, strings.Join(e.Missing, " "))
}

func (e *ScopeError) Unwrap() error {
	return shared.ErrInsufficientScope
}

// ScopeGate checks a requested operation's required scopes against the
// granted scopes of the current credential.
type ScopeGate struct {
	store Store
}

// NewScopeGate creates a gate reading from the given credential store.
func NewScopeGate(store Store) *ScopeGate {
	return &ScopeGate{store: store}
}

// Require fails with a [ScopeError] when any required scope is missing from
// the current credential's granted set, before any network call is made.
//
// With no credential yet the check is deferred: a scope requirement cannot
// be evaluated without a granted-scope set, so Require returns nil and the
// caller re-checks after authentication.
func (g *ScopeGate) Require(operation string, required []string) error {
	if len(required) == 0 {
		return nil
	}

	cred := g.store.Current()
	if cred == nil {
		return nil
	}

	if missing := cred.MissingScopes(required); len(missing) > 0 {
		return &ScopeError{Operation: operation, Missing: missing}
	}

	return nil
}
