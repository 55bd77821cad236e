// Package store defines the capability surface rampguard requires from a
// shared key-value store.
//
// The limiters and the distributed lock never talk to a concrete client
// library; they depend on [Client], a small set of named operations (get,
// set-with-expiry, create-if-absent, increment, expire, sorted-set and hash
// access). Each operation is atomic on its own; nothing in rampguard assumes
// atomicity across two calls.
//
// # Architecture boundaries
//
// This package owns the interface and the two infrastructure sentinels
// ([ErrNotFound], [ErrUnavailable]). Concrete adapters live in sub-packages
// (store/redisstore) or in the caller's codebase.
//
// # What this package must NOT do
//
//   - Import a client library or any rampguard package.
//   - Carry rate-limit or lock semantics; it is transport vocabulary only.
package store
