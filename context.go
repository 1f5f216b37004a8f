package sessionguard

import (
	"context"

	"github.com/MrEthical07/sessionguard/token"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type sessionIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for fingerprint binding on refresh sessions and for admission keys.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. Used together
// with the client IP to detect refresh-session hijacking.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithSessionID attaches the per-client correlation cookie value to ctx.
// It feeds the admission bucket key; it carries no authentication weight.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey{}, sessionID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func sessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	sessionID, _ := ctx.Value(sessionIDContextKey{}).(string)
	return sessionID
}

// fingerprintFromContext assembles the client fingerprint carried by ctx.
// ok is false when either component is missing.
func fingerprintFromContext(ctx context.Context) (token.Fingerprint, bool) {
	fp := token.Fingerprint{
		UserAgent: userAgentFromContext(ctx),
		IP:        clientIPFromContext(ctx),
	}
	return fp, fp.UserAgent != "" && fp.IP != ""
}
