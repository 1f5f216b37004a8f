// Package middleware provides net/http wrappers over the engine: bearer
// access-token validation and per-client admission control. Every
// credential failure surfaces as one generic 401 so replay-detection
// internals are never revealed to an attacker; rate-limit rejections
// surface distinctly (429) so legitimate clients can back off.
package middleware
