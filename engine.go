package sessionguard

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionguard/entitlement"
	"github.com/MrEthical07/sessionguard/internal/blacklist"
	"github.com/MrEthical07/sessionguard/internal/rate"
	"github.com/MrEthical07/sessionguard/internal/rotation"
	"github.com/MrEthical07/sessionguard/token"
)

// Engine is the session and entitlement core. All methods are safe for
// concurrent use after [Builder.Build].
type Engine struct {
	config       Config
	tokens       *token.Manager
	rotator      *rotation.Service
	limiter      *rate.Limiter
	entitlements *entitlement.Synchronizer
	audit        *auditDispatcher
	metrics      *Metrics
	userProvider UserProvider

	ownsBusReader bool
}

// Login authenticates a user through the external provider and mints an
// access+refresh pair. The refresh session binds to the client fingerprint
// carried in ctx via [WithClientIP] and [WithUserAgent]; logging in without
// one fails with [ErrFingerprintRequired].
func (e *Engine) Login(ctx context.Context, username, password string) (string, string, error) {
	if e == nil {
		return "", "", ErrEngineNotReady
	}

	fp, ok := fingerprintFromContext(ctx)
	if !ok {
		return "", "", ErrFingerprintRequired
	}

	user, err := e.userProvider.Authenticate(ctx, username, password)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditLoginFailed,
			Username:  username,
			IP:        fp.IP,
			UserAgent: fp.UserAgent,
			Error:     err.Error(),
		})
		if errors.Is(err, ErrInvalidLogin) {
			return "", "", ErrInvalidLogin
		}
		return "", "", err
	}

	access, err := e.tokens.IssueAccess(user.UserID, user.Roles)
	if err != nil {
		return "", "", err
	}
	refresh, err := e.tokens.IssueRefresh(user.Username, fp)
	if err != nil {
		return "", "", err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogin,
		Username:  user.Username,
		UserID:    user.UserID,
		IP:        fp.IP,
		UserAgent: fp.UserAgent,
		Success:   true,
	})

	return access, refresh, nil
}

// Validate verifies an access token. It is stateless: signature and expiry
// only, no store round trip.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrInvalidCredential
	}

	e.metricInc(MetricValidateSuccess)
	return &AuthResult{
		UserID: claims.Subject,
		Roles:  claims.Roles,
	}, nil
}

// Refresh rotates a refresh token: the presented jti is consumed one-shot
// and a new pair is minted, bound to the fingerprint presented now. Replay
// and fingerprint drift are audited as security signals.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if e == nil {
		return "", "", ErrEngineNotReady
	}

	fp, ok := fingerprintFromContext(ctx)
	if !ok {
		return "", "", ErrFingerprintRequired
	}

	result, err := e.rotator.Rotate(ctx, refreshToken, fp)
	if err != nil {
		return "", "", e.mapRotationError(ctx, err, fp)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditRefresh,
		Username:  result.Username,
		JTI:       result.ConsumedJTI,
		IP:        fp.IP,
		UserAgent: fp.UserAgent,
		Success:   true,
	})

	return result.AccessToken, result.RefreshToken, nil
}

// Logout revokes a refresh session. Revoking an already-revoked token is a
// no-op success.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.rotator.Revoke(ctx, refreshToken); err != nil {
		switch {
		case errors.Is(err, token.ErrMalformedToken):
			return ErrMalformedCredential
		case errors.Is(err, token.ErrInvalidToken):
			return ErrInvalidCredential
		case errors.Is(err, blacklist.ErrRedisUnavailable):
			e.metricInc(MetricStoreFailure)
			return ErrStoreUnavailable
		}
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   true,
	})

	return nil
}

// IsRefreshRevoked reports whether a refresh jti has been consumed, for
// collaborators elsewhere in the system that only hold a jti.
func (e *Engine) IsRefreshRevoked(ctx context.Context, jti string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}

	revoked, err := e.rotator.IsBlacklisted(ctx, jti)
	if err != nil {
		e.metricInc(MetricStoreFailure)
		return false, ErrStoreUnavailable
	}
	return revoked, nil
}

// Admit spends one admission token for the client identified by the
// session cookie plus the fingerprint in ctx. An unreachable store rejects
// (fail closed) with [ErrStoreUnavailable] so callers can surface it apart
// from an ordinary [ErrRateLimited].
func (e *Engine) Admit(ctx context.Context, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if sessionID == "" {
		sessionID = sessionIDFromContext(ctx)
	}
	key := rate.ClientKey(sessionID, userAgentFromContext(ctx), clientIPFromContext(ctx))

	if err := e.limiter.Admit(ctx, key); err != nil {
		e.metricInc(MetricAdmitRejected)
		switch {
		case errors.Is(err, rate.ErrRateLimited):
			e.emitAudit(ctx, AuditEvent{
				EventType: AuditAdmitRejected,
				IP:        clientIPFromContext(ctx),
				UserAgent: userAgentFromContext(ctx),
			})
			return ErrRateLimited
		case errors.Is(err, rate.ErrRedisUnavailable):
			e.metricInc(MetricStoreFailure)
			return ErrStoreUnavailable
		}
		return err
	}

	e.metricInc(MetricAdmitAllowed)
	return nil
}

// RunEntitlementSync runs the entitlement consumer loop until ctx is
// cancelled. It is a long-lived call intended for its own goroutine, one
// per process.
func (e *Engine) RunEntitlementSync(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.entitlements == nil {
		return errors.New("entitlement sync not configured")
	}
	return e.entitlements.Run(ctx)
}

// Close drains the audit dispatcher and, when the engine constructed its
// own bus reader, closes it. Injected readers stay under the caller's
// ownership.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownsBusReader && e.entitlements != nil {
		_ = e.entitlements.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// DropIfFull.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

// lookupRoles resolves the rotation subject's current identity and roles
// so a rotated access token reflects role changes made since login.
func (e *Engine) lookupRoles(ctx context.Context, username string) (string, []string, error) {
	user, err := e.userProvider.GetUserByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	return user.UserID, user.Roles, nil
}

// mapRotationError translates internal rotation failures into the public
// taxonomy and records the security signals.
func (e *Engine) mapRotationError(ctx context.Context, err error, fp token.Fingerprint) error {
	switch {
	case errors.Is(err, rotation.ErrReplayed):
		e.metricInc(MetricReplayDetected)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditReplayDetected,
			IP:        fp.IP,
			UserAgent: fp.UserAgent,
			Error:     err.Error(),
		})
		return ErrReplayedCredential
	case errors.Is(err, rotation.ErrDeviceMismatch):
		e.metricInc(MetricDeviceMismatch)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditDeviceMismatch,
			IP:        fp.IP,
			UserAgent: fp.UserAgent,
			Error:     err.Error(),
		})
		return ErrDeviceMismatch
	case errors.Is(err, rotation.ErrLocationMismatch):
		e.metricInc(MetricLocationMismatch)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditLocationMismatch,
			IP:        fp.IP,
			UserAgent: fp.UserAgent,
			Error:     err.Error(),
		})
		return ErrLocationMismatch
	case errors.Is(err, token.ErrMalformedToken):
		e.metricInc(MetricRefreshFailure)
		return ErrMalformedCredential
	case errors.Is(err, token.ErrInvalidToken):
		e.metricInc(MetricRefreshFailure)
		return ErrInvalidCredential
	case errors.Is(err, blacklist.ErrRedisUnavailable):
		e.metricInc(MetricStoreFailure)
		return ErrStoreUnavailable
	}

	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditRefreshFailed,
		IP:        fp.IP,
		UserAgent: fp.UserAgent,
		Error:     err.Error(),
	})
	return err
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	e.audit.Emit(ctx, event)
}
