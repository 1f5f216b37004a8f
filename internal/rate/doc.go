// Package rate implements the per-client leaky-bucket admission controller
// backed by Redis. Buckets are keyed by a fingerprint hash and stored as a
// Redis hash under ratebucket:{hash} with fields tokens and last_refill.
//
// # Consistency
//
// The default Admit path is a fetch-modify-store sequence and is NOT atomic:
// two concurrent requests from the same fingerprint can both read the same
// token count and both decrement from it, briefly exceeding capacity. The
// Atomic configuration switches Admit to a single server-side Lua script
// with identical semantics and no race window.
//
// # What this package must NOT do
//
//   - Implement request routing or response shaping (middleware's job).
//   - Be imported outside the sessionguard module.
package rate
