// Package identity abstracts the external identity provider used for
// sign-up, sign-in and administrative user creation. Passwords are never
// stored by the service; only temporary passwords generated for
// admin-created users are returned, once, to the caller.
package identity

import (
	"context"
)

// SignUpResult carries the provider's subject identifier for a new user.
// The subject is persisted verbatim as the userId.
type SignUpResult struct {
	IdentityID string
	Confirmed  bool
}

// Tokens are the credentials minted by a successful sign-in.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int32
}

// Provider is the capability interface over the identity backend.
type Provider interface {
	SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (*Tokens, error)
	// AdminCreateUser provisions a user with a temporary password and a
	// suppressed welcome mail; returns the new subject identifier.
	AdminCreateUser(ctx context.Context, email, name string, attrs map[string]string, temporaryPassword string) (string, error)
	// UpdateAttributes overwrites user attributes on the provider side.
	UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error
}
