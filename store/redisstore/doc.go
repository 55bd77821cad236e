// Package redisstore adapts a go-redis client to the rampguard store
// capability surface.
//
// The adapter maps redis.Nil to store.ErrNotFound and wraps every other
// failure with store.ErrUnavailable. An optional circuit breaker
// (sony/gobreaker) guards all data-path calls so a dead Redis fails fast
// instead of tying request handlers up in connect timeouts; breaker
// rejections surface as store.ErrUnavailable like any other outage.
//
// # What this package must NOT do
//
//   - Leak redis error values or the redis client through its API.
//   - Retry on its own; retry policy belongs to the caller.
package redisstore
