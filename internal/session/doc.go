// Package session implements the authenticated session core shared by all
// streaming-provider API clients.
//
// # Components
//
// [Credential] holds the current token state and is owned by a [Store];
// mutation is atomic with respect to readers and only the [FlowEngine]
// writes during acquisition or refresh.
//
// [FlowEngine] drives the two supported authorization flows (the
// interactive authorization code flow with PKCE, and the machine-to-machine
// client credentials flow) plus token refresh. Refresh is single-flight:
// concurrent callers racing on an expired credential collapse into one
// token-endpoint call.
//
// [ScopeGate] rejects operations whose required authorization scopes were
// not granted, before any network call is attempted.
//
// [Client] is the façade every endpoint wrapper calls through. It owns the
// HTTP transport, consults the flow engine to obtain or refresh
// credentials, enforces the scope gate, and memoizes read responses behind
// the tiered cache. On a provider-side token rejection it refreshes and
// retries exactly once.
package session
