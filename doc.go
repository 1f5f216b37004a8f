// Package sessionguard is the distributed session and entitlement core of a
// multi-service billing platform: issuance and validation of short-lived
// access tokens and longer-lived refresh tokens, replay-safe refresh
// rotation bound to a client fingerprint, a per-client leaky-bucket
// admission controller, and eventually-consistent propagation of
// subscription state into authorization roles via Kafka.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessionguard is the public surface. It exposes [Engine], [Builder],
// [Config], the error taxonomy, and value types. Persistent entity storage
// (users, roles, subscriptions) stays behind the [UserProvider] and
// [entitlement.RoleDirectory] interfaces; Redis holds only negative session
// state (jti blacklist markers) and rate buckets.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or token encoding details in
//     its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Hold module-level singletons: every bus or store client is an
//     explicitly constructed, explicitly owned resource.
package sessionguard
