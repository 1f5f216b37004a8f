package middleware

import (
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"

	sessionguard "github.com/MrEthical07/sessionguard"
)

// SessionCookieName is the correlation cookie feeding the admission bucket
// key. It carries no authentication weight.
const SessionCookieName = "session_id"

// Admission gates every request through the engine's leaky bucket before
// the handler runs. A client arriving without a session cookie gets one
// minted — once per client lifetime, not per request. Rejections: 429 when
// the bucket is empty, 503 when the credential store is unreachable (the
// limiter fails closed rather than silently allowing).
func Admission(engine *sessionguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			sessionID := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				sessionID = cookie.Value
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
				})
			}

			ctx := sessionguard.WithClientIP(r.Context(), clientIP(r))
			ctx = sessionguard.WithUserAgent(ctx, r.UserAgent())
			ctx = sessionguard.WithSessionID(ctx, sessionID)

			if err := engine.Admit(ctx, sessionID); err != nil {
				if errors.Is(err, sessionguard.ErrRateLimited) {
					http.Error(w, "too many requests", http.StatusTooManyRequests)
					return
				}
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
