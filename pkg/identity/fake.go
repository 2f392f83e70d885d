package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FakeProvider is an in-memory Provider for tests and local development.
type FakeProvider struct {
	mu    sync.Mutex
	users map[string]*fakeUser // keyed by email
}

type fakeUser struct {
	id        string
	password  string
	name      string
	confirmed bool
	attrs     map[string]string
}

// NewFakeProvider creates an empty fake identity provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{users: map[string]*fakeUser{}}
}

// SignUp registers an unconfirmed user.
func (f *FakeProvider) SignUp(_ context.Context, email, password, name string) (*SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[email]; exists {
		return nil, fmt.Errorf("user already exists: %s", email)
	}
	u := &fakeUser{id: uuid.NewString(), password: password, name: name, attrs: map[string]string{}}
	f.users[email] = u
	return &SignUpResult{IdentityID: u.id, Confirmed: false}, nil
}

// ConfirmSignUp accepts any non-empty code.
func (f *FakeProvider) ConfirmSignUp(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return fmt.Errorf("user not found: %s", email)
	}
	if code == "" {
		return fmt.Errorf("invalid confirmation code")
	}
	u.confirmed = true
	return nil
}

// SignIn validates the stored password and mints opaque tokens.
func (f *FakeProvider) SignIn(_ context.Context, email, password string) (*Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || u.password != password {
		return nil, fmt.Errorf("incorrect username or password")
	}
	return &Tokens{
		AccessToken:  "access-" + u.id,
		IDToken:      "id-" + u.id,
		RefreshToken: "refresh-" + u.id,
		ExpiresIn:    3600,
	}, nil
}

// AdminCreateUser provisions a confirmed user with the temporary password.
func (f *FakeProvider) AdminCreateUser(_ context.Context, email, name string, attrs map[string]string, temporaryPassword string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[email]; exists {
		return "", fmt.Errorf("user already exists: %s", email)
	}
	u := &fakeUser{id: uuid.NewString(), password: temporaryPassword, name: name, confirmed: true, attrs: attrs}
	f.users[email] = u
	return u.id, nil
}

// Attribute returns a stored attribute value for inspection in tests.
func (f *FakeProvider) Attribute(email, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return "", false
	}
	v, ok := u.attrs[key]
	return v, ok
}

// UpdateAttributes merges attributes into the stored user.
func (f *FakeProvider) UpdateAttributes(_ context.Context, email string, attrs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return fmt.Errorf("user not found: %s", email)
	}
	if u.attrs == nil {
		u.attrs = map[string]string{}
	}
	for k, v := range attrs {
		u.attrs[k] = v
	}
	return nil
}
