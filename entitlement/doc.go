// Package entitlement keeps the subscriber authorization role consistent
// with externally-authoritative subscription state, without a shared
// transaction across services. It consumes subscription lifecycle events
// from a Kafka topic and idempotently grants or revokes the role through a
// [RoleDirectory] collaborator.
//
// # Delivery semantics
//
// Delivery is at-least-once: offsets are committed only after an event is
// applied or deliberately dropped, so a crash mid-event redelivers it on
// restart. Every role mutation is therefore idempotent — assigning an
// already-assigned role or removing an absent one is a no-op success.
// Ordering holds per user when the producer keys messages by user ID;
// nothing is guaranteed across users.
//
// # What this package must NOT do
//
//   - Retry transient failures itself (redelivery is the transport's job).
//   - Crash the consumer loop on malformed or unknown events.
package entitlement
