package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token fails signature, expiry, or
// structural validation.
var ErrInvalidToken = errors.New("invalid token")

// ErrMalformedToken is returned when a refresh token verifies but is missing
// required claims.
var ErrMalformedToken = errors.New("malformed token")

// Fingerprint identifies the client a refresh session is bound to.
type Fingerprint struct {
	UserAgent string
	IP        string
}

// Config holds token issuance parameters. AccessSecret and RefreshSecret
// must differ: a leaked access secret must not be able to forge refresh
// tokens.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Leeway        time.Duration
}

// Manager mints and verifies access and refresh tokens. Verification is
// pure: the Manager never consults revocation state.
//
// Manager instances are intended to be configured during initialization and
// then treated as immutable.
type Manager struct {
	config Config
	now    func() time.Time
}

// AccessClaims is the payload of a short-lived access token. Subject carries
// the user ID.
type AccessClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a longer-lived refresh token. Subject
// carries the username, ID the one-shot jti, and UserAgent/IP the client
// fingerprint the session is bound to.
type RefreshClaims struct {
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
	jwt.RegisteredClaims
}

// Fingerprint returns the client fingerprint embedded in the claims.
func (c *RefreshClaims) Fingerprint() Fingerprint {
	return Fingerprint{UserAgent: c.UserAgent, IP: c.IP}
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// IssueAccess mints an access token for the subject with the given role
// names. No side effects beyond token construction.
func (m *Manager) IssueAccess(subjectID string, roles []string) (string, error) {
	now := m.now()
	claims := AccessClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.AccessSecret)
}

// IssueRefresh mints a refresh token for the username, bound to the client
// fingerprint, with a freshly generated jti.
func (m *Manager) IssueRefresh(username string, fp Fingerprint) (string, error) {
	now := m.now()
	claims := RefreshClaims{
		UserAgent: fp.UserAgent,
		IP:        fp.IP,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.RefreshSecret)
}

// ParseAccess verifies an access token and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, m.config.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and returns its claims. Tokens that
// verify but lack any of {jti, subject, user agent, ip} fail with
// [ErrMalformedToken]: a refresh token without a complete fingerprint cannot
// be safely rotated.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, m.config.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" || claims.UserAgent == "" || claims.IP == "" {
		return nil, fmt.Errorf("%w: missing required refresh claims", ErrMalformedToken)
	}
	return claims, nil
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
