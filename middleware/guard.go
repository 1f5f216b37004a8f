package middleware

import (
	"context"
	"net/http"
	"strings"

	sessionguard "github.com/MrEthical07/sessionguard"
)

type authResultContextKey struct{}

// AuthResultFromContext retrieves the validation result stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*sessionguard.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*sessionguard.AuthResult)
	return res, ok
}

// Guard validates the bearer access token on every request and stores the
// result in the request context. Access credentials travel only as bearer
// values; refresh credentials never pass through here.
func Guard(engine *sessionguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			res, err := engine.Validate(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorized is the single response shape for every credential failure.
func unauthorized(w http.ResponseWriter) {
	http.Error(w, "unauthorized, please log in again", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
