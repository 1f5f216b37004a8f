package rotation

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionguard/internal/blacklist"
	"github.com/MrEthical07/sessionguard/token"
)

var (
	// ErrReplayed is returned when a refresh jti is already blacklisted.
	// It is a theft signal: the caller should force a full re-login.
	ErrReplayed = errors.New("refresh token replayed")
	// ErrDeviceMismatch is returned when the presenting client's user agent
	// differs from the one the session was issued to.
	ErrDeviceMismatch = errors.New("refresh device mismatch")
	// ErrLocationMismatch is returned when the presenting client's IP
	// differs from the one the session was issued to.
	ErrLocationMismatch = errors.New("refresh location mismatch")
)

// Result carries the freshly minted pair after a successful rotation.
type Result struct {
	AccessToken  string
	RefreshToken string
	Username     string
	ConsumedJTI  string
}

// Service rotates and revokes refresh sessions. Rotation consumes the
// presented jti and binds the replacement session to the current
// fingerprint.
type Service struct {
	tokens    *token.Manager
	blacklist *blacklist.Store
	now       func() time.Time

	// lookupRoles resolves the subject's current role names for the new
	// access token. May be nil when access issuance needs no roles.
	lookupRoles func(ctx context.Context, username string) (string, []string, error)
}

// New creates a rotation Service. lookupRoles maps the refresh subject to a
// user ID and role names for the replacement access token.
func New(
	tokens *token.Manager,
	blacklistStore *blacklist.Store,
	lookupRoles func(ctx context.Context, username string) (string, []string, error),
) *Service {
	return &Service{
		tokens:      tokens,
		blacklist:   blacklistStore,
		now:         time.Now,
		lookupRoles: lookupRoles,
	}
}

// Rotate exchanges a refresh token for a new access+refresh pair. Order of
// checks: signature/shape, blacklist, user agent, IP. The blacklist marker
// is written only after all checks pass; every failure leaves observable
// state untouched.
func (s *Service) Rotate(ctx context.Context, refreshToken string, current token.Fingerprint) (*Result, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.checkAndConsume(ctx, claims, &current); err != nil {
		return nil, err
	}

	subjectID := claims.Subject
	var roles []string
	if s.lookupRoles != nil {
		subjectID, roles, err = s.lookupRoles(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
	}

	access, err := s.tokens.IssueAccess(subjectID, roles)
	if err != nil {
		return nil, err
	}
	// The new session binds to the fingerprint presented now, not the one
	// recorded at original issuance.
	refresh, err := s.tokens.IssueRefresh(claims.Subject, current)
	if err != nil {
		return nil, err
	}

	return &Result{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     claims.Subject,
		ConsumedJTI:  claims.ID,
	}, nil
}

// Revoke consumes a refresh token without re-issuance (the logout path).
// Revoking an already-blacklisted token is a no-op success.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return err
	}

	found, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	return s.blacklist.Add(ctx, claims.ID, s.remainingValidity(claims))
}

// IsBlacklisted reports whether a jti has been consumed. For consumers
// elsewhere in the system that only hold a jti.
func (s *Service) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.blacklist.Contains(ctx, jti)
}

// checkAndConsume runs the blacklist and fingerprint checks and, only when
// all pass, writes the jti marker. A nil current skips fingerprint
// comparison (revocation path).
func (s *Service) checkAndConsume(ctx context.Context, claims *token.RefreshClaims, current *token.Fingerprint) error {
	found, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return err
	}
	if found {
		return ErrReplayed
	}

	if current != nil {
		if current.UserAgent != claims.UserAgent {
			return ErrDeviceMismatch
		}
		if current.IP != claims.IP {
			return ErrLocationMismatch
		}
	}

	return s.blacklist.Add(ctx, claims.ID, s.remainingValidity(claims))
}

// remainingValidity bounds the marker TTL to the token's own lifetime so
// blacklist growth never outlives the longest refresh token.
func (s *Service) remainingValidity(claims *token.RefreshClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return time.Second
	}
	return claims.ExpiresAt.Time.Sub(s.now())
}
