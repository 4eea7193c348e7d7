// Package editing coordinates concurrent edits of handbook sections,
// memorandums and policy sections.
//
// An editor first acquires edit priority (a lease) on a document. Only the
// priority editor may save, and only against the version they read; a
// successful save bumps the version, resets the review status to draft and
// releases the lease. Leases are never renewed: the Sweeper clears any lease
// older than the TTL, which is how leases abandoned by closed clients are
// reclaimed.
//
// Lease transitions per document:
//
//	UNLEASED  --Acquire(u)-------------------> LEASED(u)
//	LEASED(u) --Acquire(u)-------------------> LEASED(u)   granted, start time kept
//	LEASED(u) --Acquire(v)-------------------> LEASED(u)   denied
//	LEASED(u) --Release(u)-------------------> UNLEASED
//	LEASED(u) --Release(v)-------------------> LEASED(u)   no-op
//	LEASED(u) --Save(u, current version)-----> UNLEASED    version+1, status=draft
//	LEASED(u) --Save(u, stale version)-------> LEASED(u)   ErrVersionConflict
//	LEASED(u) --Save(v)----------------------> LEASED(u)   ErrNoEditPriority
//	LEASED(u) --sweep, older than TTL--------> UNLEASED
package editing
