package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muse/internal/server"
	"github.com/desertthunder/muse/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// State is the flow engine's position in the authorization state machine.
type State int32

const (
	StateIdle State = iota
	StateAwaitingCallback
	StateExchangingCode
	StateRequestingToken
	StateRefreshing
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateExchangingCode:
		return "exchanging_code"
	case StateRequestingToken:
		return "requesting_token"
	case StateRefreshing:
		return "refreshing"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// defaultAuthTimeout bounds the wait for the user to complete the browser
// step of the interactive flow.
const defaultAuthTimeout = 2 * time.Minute

// PendingAuthorization is the single-use state of one interactive flow
// attempt. It is consumed exactly once when the callback arrives, and
// discarded on timeout or cancellation; the code verifier is never reused
// across attempts.
type PendingAuthorization struct {
	PKCE        PKCE
	State       string
	RedirectURI string
	CreatedAt   time.Time
}

// FlowConfig holds the provider and client settings the engine needs to run
// an authorization flow.
type FlowConfig struct {
	Flow         FlowKind
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string

	// ListenAddr is the host:port the callback listener binds; derived
	// from the redirect URI when empty.
	ListenAddr string

	// CallbackPath is the path component of the redirect URI the listener
	// serves; derived from the redirect URI when empty, else "/callback".
	CallbackPath string

	// Timeout bounds the interactive flow's wait for the callback;
	// defaults to two minutes.
	Timeout time.Duration

	// OpenBrowser launches the user's browser at the authorization URL.
	// Defaults to [shared.OpenBrowser]; a failure falls back to logging
	// the URL so the user can open it manually.
	OpenBrowser func(string) error
}

// FlowEngine drives credential acquisition and refresh for one account.
//
// The engine owns all writes to the credential store. Refresh is
// single-flight: the refresh mutex is held only for the duration of the
// token exchange, never across the caller's subsequent HTTP request.
type FlowEngine struct {
	cfg    FlowConfig
	store  Store
	logger *log.Logger

	// httpClient is used for token-endpoint exchanges; tests point it at
	// an httptest server.
	httpClient *http.Client

	state     atomic.Int32
	refreshMu sync.Mutex
}

// NewFlowEngine creates an engine writing credentials to store.
func NewFlowEngine(cfg FlowConfig, store Store, logger *log.Logger) (*FlowEngine, error) {
	if !cfg.Flow.Valid() {
		return nil, fmt.Errorf("%w: unknown authorization flow %q", shared.ErrInvalidConfig, cfg.Flow)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", shared.ErrMissingCredentials)
	}
	if cfg.Flow == FlowClientCredentials && cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: the client credentials flow requires client_secret", shared.ErrMissingCredentials)
	}
	if cfg.Flow == FlowPKCE && cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: the PKCE flow requires redirect_uri", shared.ErrInvalidConfig)
	}
	if cfg.RedirectURI != "" {
		u, err := url.Parse(cfg.RedirectURI)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: cannot derive listener from redirect_uri %q", shared.ErrInvalidConfig, cfg.RedirectURI)
		}
		if cfg.ListenAddr == "" {
			cfg.ListenAddr = u.Host
		}
		if cfg.CallbackPath == "" && u.Path != "" {
			cfg.CallbackPath = u.Path
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAuthTimeout
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/callback"
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = shared.OpenBrowser
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &FlowEngine{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		httpClient: http.DefaultClient,
	}, nil
}

// SetHTTPClient replaces the HTTP client used for token-endpoint calls.
func (e *FlowEngine) SetHTTPClient(client *http.Client) {
	if client != nil {
		e.httpClient = client
	}
}

// State returns the engine's current state.
func (e *FlowEngine) State() State {
	return State(e.state.Load())
}

func (e *FlowEngine) setState(s State) {
	prev := State(e.state.Swap(int32(s)))
	if prev != s {
		e.logger.Debug("flow state transition", "from", prev.String(), "to", s.String())
	}
}

// oauthConfig builds the oauth2 endpoint configuration for the engine.
func (e *FlowEngine) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.cfg.ClientID,
		ClientSecret: e.cfg.ClientSecret,
		RedirectURL:  e.cfg.RedirectURI,
		Scopes:       e.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  e.cfg.AuthURL,
			TokenURL: e.cfg.TokenURL,
		},
	}
}

// tokenContext binds the engine's HTTP client to ctx for oauth2 exchanges.
func (e *FlowEngine) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

// Authorize runs the configured flow to acquire a credential, blocking
// until the flow completes or fails. The resulting credential is written to
// the store (and persisted, when the store is durable).
func (e *FlowEngine) Authorize(ctx context.Context) (*Credential, error) {
	switch e.cfg.Flow {
	case FlowClientCredentials:
		return e.authorizeClientCredentials(ctx)
	case FlowPKCE:
		return e.authorizePKCE(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown authorization flow %q", shared.ErrInvalidConfig, e.cfg.Flow)
	}
}

// authorizeClientCredentials exchanges the client identifier and secret for
// a token. No user interaction and no refresh token.
func (e *FlowEngine) authorizeClientCredentials(ctx context.Context) (*Credential, error) {
	e.setState(StateRequestingToken)
	e.logger.Info("requesting token via client credentials flow", "client_id", e.cfg.ClientID)

	cc := &clientcredentials.Config{
		ClientID:     e.cfg.ClientID,
		ClientSecret: e.cfg.ClientSecret,
		TokenURL:     e.cfg.TokenURL,
		Scopes:       e.cfg.Scopes,
	}

	token, err := cc.Token(e.tokenContext(ctx))
	if err != nil {
		e.setState(StateFailed)
		return nil, fmt.Errorf("%w: client credentials exchange rejected: %v", shared.ErrAuthenticationFailed, err)
	}

	cred := e.credentialFromToken(token, "")
	if err := e.commit(cred); err != nil {
		return nil, err
	}

	e.setState(StateAuthenticated)
	return cred, nil
}

// authorizePKCE runs the interactive authorization code flow with PKCE:
// generate the proof-key pair and state nonce, start the local redirect
// listener, open the browser, wait for the callback within the bounded
// timeout, then exchange the code and verifier for a token.
func (e *FlowEngine) authorizePKCE(ctx context.Context) (*Credential, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		e.setState(StateFailed)
		return nil, err
	}

	state, err := shared.GenerateState()
	if err != nil {
		e.setState(StateFailed)
		return nil, err
	}

	pending := &PendingAuthorization{
		PKCE:        pkce,
		State:       state,
		RedirectURI: e.cfg.RedirectURI,
		CreatedAt:   time.Now(),
	}

	cb, err := e.awaitCallback(ctx, pending)
	if err != nil {
		e.setState(StateFailed)
		return nil, err
	}

	e.setState(StateExchangingCode)

	if cb.Denied() {
		return nil, e.fail(fmt.Errorf("%w: %s (%s)", shared.ErrAuthorizationDenied, cb.ErrParam, cb.ErrDesc))
	}
	if cb.State != pending.State {
		return nil, e.fail(fmt.Errorf("%w: possible CSRF, aborting flow", shared.ErrStateMismatch))
	}
	if cb.Code == "" {
		return nil, e.fail(fmt.Errorf("%w: callback missing authorization code", shared.ErrAuthenticationFailed))
	}

	token, err := e.oauthConfig().Exchange(e.tokenContext(ctx), cb.Code,
		oauth2.SetAuthURLParam("code_verifier", pending.PKCE.Verifier))
	if err != nil {
		return nil, e.fail(fmt.Errorf("%w: code exchange rejected: %v", shared.ErrAuthenticationFailed, err))
	}

	cred := e.credentialFromToken(token, "")
	if err := e.commit(cred); err != nil {
		return nil, err
	}

	e.setState(StateAuthenticated)
	e.logger.Info("authorization successful", "expires_at", cred.ExpiresAt, "scopes", cred.ScopeString())
	return cred, nil
}

// awaitCallback serves the redirect listener and blocks until the
// authorization callback, a server failure, cancellation, or the bounded
// timeout. The pending authorization is discarded on every non-callback
// outcome.
func (e *FlowEngine) awaitCallback(ctx context.Context, pending *PendingAuthorization) (server.Callback, error) {
	handler := server.NewCallbackHandler(e.cfg.CallbackPath)
	router := server.NewBasicRouter()
	router.Handler(handler)

	httpServer := &http.Server{Addr: e.cfg.ListenAddr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		e.logger.Info("starting redirect listener", "addr", e.cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			e.logger.Warn("error shutting down redirect listener", "error", err)
		}
	}()

	authURL := e.oauthConfig().AuthCodeURL(pending.State,
		oauth2.SetAuthURLParam("code_challenge", pending.PKCE.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"))

	e.setState(StateAwaitingCallback)

	if err := e.cfg.OpenBrowser(authURL); err != nil {
		e.logger.Warn("failed to open browser automatically", "error", err)
		e.logger.Infof("open this URL in your browser:\n%s", authURL)
	}

	timeout := time.NewTimer(e.cfg.Timeout)
	defer timeout.Stop()

	select {
	case cb := <-handler.Result():
		return cb, nil
	case err := <-serverErrors:
		return server.Callback{}, fmt.Errorf("redirect listener failed: %w", err)
	case <-ctx.Done():
		return server.Callback{}, fmt.Errorf("%w: authorization canceled: %v", shared.ErrAuthorizationTimeout, ctx.Err())
	case <-timeout.C:
		return server.Callback{}, fmt.Errorf("%w: no callback within %v", shared.ErrAuthorizationTimeout, e.cfg.Timeout)
	}
}

// Refresh renews the current credential, collapsing concurrent callers into
// a single token-endpoint call. Callers that lose the race observe the
// winner's result.
//
// A rejected refresh token is unrecoverable: the stored credential is
// cleared and the caller must restart the original flow.
func (e *FlowEngine) Refresh(ctx context.Context) (*Credential, error) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	cred := e.store.Current()
	if cred == nil {
		return nil, fmt.Errorf("%w: no credential to refresh", shared.ErrSessionExpired)
	}

	// Another caller may have completed the refresh while this one waited
	// on the mutex.
	if cred.AccessToken != "" && !cred.ExpiringWithin(time.Now(), refreshSkew) {
		return cred, nil
	}

	if !cred.Refreshable() {
		return nil, fmt.Errorf("%w: reauthorize to continue", shared.ErrNoRefreshToken)
	}

	// Client-credentials tokens are renewed by re-running the exchange.
	if cred.RefreshToken == "" {
		return e.authorizeClientCredentials(ctx)
	}

	e.setState(StateRefreshing)
	e.logger.Info("refreshing access token")

	src := e.oauthConfig().TokenSource(e.tokenContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil {
		e.store.Clear()
		if ps, ok := e.store.(PersistentStore); ok {
			if derr := ps.Delete(); derr != nil {
				e.logger.Warn("failed to delete persisted credential", "error", derr)
			}
		}
		e.setState(StateFailed)
		return nil, fmt.Errorf("%w: refresh token rejected: %v", shared.ErrAuthenticationFailed, err)
	}

	// Providers may rotate the refresh token; keep the old one when the
	// response omits it.
	next := e.credentialFromToken(token, cred.RefreshToken)
	if len(next.Scopes) == 0 {
		next.Scopes = cred.Scopes
	}

	if err := e.commit(next); err != nil {
		return nil, err
	}

	e.setState(StateAuthenticated)
	return next, nil
}

// ForceRefresh renews the credential even if it has not expired locally;
// used after a provider-side rejection (clock skew, server revocation).
func (e *FlowEngine) ForceRefresh(ctx context.Context) (*Credential, error) {
	e.refreshMu.Lock()
	cred := e.store.Current()
	if cred != nil {
		// Expire the local copy so Refresh performs a real exchange.
		stale := *cred
		stale.ExpiresAt = time.Now().Add(-time.Second)
		e.store.Set(&stale)
	}
	e.refreshMu.Unlock()

	return e.Refresh(ctx)
}

// fail marks the flow failed and returns err unchanged.
func (e *FlowEngine) fail(err error) error {
	e.setState(StateFailed)
	return err
}

// commit writes the credential to the store and, for durable stores,
// persists it.
func (e *FlowEngine) commit(cred *Credential) error {
	e.store.Set(cred)

	if ps, ok := e.store.(PersistentStore); ok {
		if err := ps.Persist(); err != nil {
			e.logger.Warn("failed to persist credential", "error", err)
		}
	}

	return nil
}

// credentialFromToken converts an oauth2 token response into a Credential.
//
// Granted scopes come from the response's scope field when present,
// otherwise the requested scopes are assumed granted.
func (e *FlowEngine) credentialFromToken(token *oauth2.Token, fallbackRefresh string) *Credential {
	cred := &Credential{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Flow:         e.cfg.Flow,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = fallbackRefresh
	}

	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		cred.Scopes = strings.Fields(scope)
	} else {
		cred.Scopes = e.cfg.Scopes
	}

	return cred
}
