// Package token mints and verifies the two credential kinds: short-lived
// access tokens and longer-lived, fingerprint-bound refresh tokens. Access
// and refresh tokens are signed with distinct secrets so a leaked access
// secret cannot forge refresh tokens.
//
// # Architecture boundaries
//
// Verification here is pure and side-effect free. This package does NOT
// consult the jti blacklist — revocation is the rotation service's job.
//
// # What this package must NOT do
//
//   - Touch Redis or any other store.
//   - Import the root package or internal packages (no upward imports).
package token
