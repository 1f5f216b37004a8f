package sessionguard

import "errors"

var (
	// ErrInvalidCredential is returned for tokens with a bad signature or
	// an expiry in the past. The caller must re-authenticate; there is no
	// point retrying.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrMalformedCredential is returned for refresh tokens that verify but
	// are structurally incomplete (missing jti, subject, or fingerprint).
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrReplayedCredential is returned when a refresh token's jti is
	// already blacklisted. It signals likely theft: the caller must force a
	// full re-login, and the engine logs it distinctly from ordinary expiry.
	ErrReplayedCredential = errors.New("replayed credential")
	// ErrDeviceMismatch is returned when the rotating client's user agent
	// differs from the one the refresh session was issued to.
	ErrDeviceMismatch = errors.New("device mismatch")
	// ErrLocationMismatch is returned when the rotating client's IP differs
	// from the one the refresh session was issued to.
	ErrLocationMismatch = errors.New("location mismatch")
	// ErrRateLimited is returned when admission rejects a request. It is
	// transient: the caller should back off for at least one leak interval.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is returned when the credential store cannot be
	// reached. Admission callers must treat it as a reject (fail closed).
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrInvalidLogin is returned by Login for unknown users or wrong
	// passwords. UserProvider implementations should return it from
	// Authenticate so the engine never distinguishes the two cases.
	ErrInvalidLogin = errors.New("invalid login")
	// ErrFingerprintRequired is returned when an operation that binds or
	// checks a session fingerprint is called without client IP and user
	// agent in the context.
	ErrFingerprintRequired = errors.New("client fingerprint required")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or incompletely configured engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
