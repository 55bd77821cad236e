// Package lock provides a store-coordinated mutual-exclusion primitive for
// serializing balance-affecting work (withdrawal processing, deposit
// crediting) across processes and hosts.
//
// A [Lock] is scoped to a category ("withdrawals"); each Acquire targets one
// resource inside that category (a wallet id, a transaction hash) and wins
// by creating the lock key with a fresh ownership token only if the key is
// absent. There is no blocking and no retry: a held lock fails acquisition
// immediately and polling or giving up is the caller's business. The TTL
// guarantees eventual release when a holder crashes.
//
// Release verifies ownership first: a token that does not match the stored
// value — including the case where the key already expired — returns
// [ErrOwnershipMismatch] and never deletes the key, so a stale holder
// cannot free a lock someone else has since taken.
//
// # What this package must NOT do
//
//   - Block, retry, or extend TTLs behind the caller's back.
//   - Treat a store outage as an acquired lock; acquisition fails closed.
package lock
