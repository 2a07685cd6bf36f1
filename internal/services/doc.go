// package services provides typed provider clients built on the
// authenticated session core.
//
// Each provider method maps to one API operation with its cache tier and
// required scopes declared up front, so the session layer can serve cached
// reads, refuse under-scoped calls before the network, and invalidate
// cached reads after mutations.
package services
