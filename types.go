package sessionguard

import (
	"context"

	"github.com/MrEthical07/sessionguard/entitlement"
)

// UserRecord is the minimal account view the engine needs: identity plus
// the current role names embedded into access tokens.
type UserRecord struct {
	UserID   string
	Username string
	Roles    []string
}

// UserProvider is the interface callers implement to integrate
// sessionguard with their user database. Password verification (and the
// hashing scheme behind it) stays on the provider's side of the boundary;
// Authenticate should return [ErrInvalidLogin] for both unknown users and
// wrong passwords so the engine never distinguishes the two.
type UserProvider interface {
	Authenticate(ctx context.Context, username, password string) (UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
}

// RoleDirectory is the external role/assignment store consumed by the
// entitlement synchronizer. Re-exported so integrators only import the
// root package.
type RoleDirectory = entitlement.RoleDirectory

// AuthResult is returned by [Engine.Validate]: the authenticated subject
// and the role names the token was minted with.
type AuthResult struct {
	UserID string
	Roles  []string
}
