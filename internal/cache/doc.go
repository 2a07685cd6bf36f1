// Package cache provides tiered time-to-live memoization for read responses.
//
// # Tiers
//
// Every cached call belongs to a named tier describing its staleness
// tolerance. Catalog metadata rarely changes and is held for a day; search
// results and popularity data churn faster and get shorter windows. The
// mapping from tier name to duration is fixed at process start via
// [TierConfig].
//
// # Single-flight population
//
// Concurrent misses for the same key collapse into a single upstream call
// through [golang.org/x/sync/singleflight]; all callers share the first
// caller's result. Errors are never cached.
//
// # Invalidation
//
// Keys are built from an operation identity and its normalized arguments via
// [Key], so all entries for one resource share a prefix. A mutating call on
// that resource invalidates the prefix, preventing stale reads immediately
// after a write.
package cache
