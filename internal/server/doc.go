// Package server provides HTTP routing and the local OAuth2 redirect
// listener used by the interactive authorization flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Redirect Listener
//
// [CallbackHandler] captures the `code` and `state` query parameters from the
// authorization callback and delivers them through a one-shot channel. It does
// not exchange the code itself: the flow engine owns the PKCE verifier and
// performs the exchange after validating the state nonce.
//
// The handler processes exactly one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
