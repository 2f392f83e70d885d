// Package accounts fronts the identity provider and owns user profile
// records and role-scoped admin user management.
package accounts

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/identity"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

// Service couples identity-provider operations with the profile table.
type Service struct {
	idp identity.Provider
	kv  storage.KVStore
	log *logrus.Logger
}

// NewService wires the account service.
func NewService(idp identity.Provider, kv storage.KVStore, log *logrus.Logger) *Service {
	return &Service{idp: idp, kv: kv, log: log}
}

// SignUpInput is the decoded /auth/signup body.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// SignUpResult reports the provisioned identity.
type SignUpResult struct {
	UserID    string `json:"userId"`
	Confirmed bool   `json:"confirmed"`
}

// SignUp registers the identity and creates the profile record with the
// default role. New signups always start as plain users.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	res, err := s.idp.SignUp(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	now := models.Now()
	user := &models.User{
		UserID:    res.IdentityID,
		Email:     in.Email,
		Name:      in.Name,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	item, err := user.Item()
	if err != nil {
		return nil, apperrors.Storage("profile encode", err)
	}
	if err := s.kv.Put(ctx, item); err != nil {
		return nil, apperrors.Storage("profile put", err)
	}

	s.log.WithField("userId", user.UserID).Info("user signed up")
	return &SignUpResult{UserID: res.IdentityID, Confirmed: res.Confirmed}, nil
}

// Confirm completes sign-up with the emailed verification code.
func (s *Service) Confirm(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return apperrors.Validation("email and code are required")
	}
	if err := s.idp.ConfirmSignUp(ctx, email, code); err != nil {
		return apperrors.Validation("%s", err.Error())
	}
	return nil
}

// SignInResult carries the session tokens and the caller's profile.
type SignInResult struct {
	Tokens *identity.Tokens `json:"tokens"`
	User   *models.User     `json:"user"`
}

// SignIn authenticates against the identity provider and joins the profile
// record. A missing profile is an auth failure, not a 404, so unregistered
// identities cannot distinguish themselves.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.Validation("email and password are required")
	}
	tokens, err := s.idp.SignIn(ctx, email, password)
	if err != nil {
		return nil, apperrors.AuthFailure("incorrect username or password")
	}

	user, err := s.profileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.AuthFailure("no profile for identity")
	}
	return &SignInResult{Tokens: tokens, User: user}, nil
}

// profileByEmail scans the USERS partition for a matching email. Email is
// not a key; sign-in is the only path that needs this reverse lookup.
func (s *Service) profileByEmail(ctx context.Context, email string) (*models.User, error) {
	items, err := s.kv.Query(ctx, storage.QueryInput{
		Index:        models.IndexGSI1,
		PartitionKey: models.PartitionUsers,
		Filter:       map[string]interface{}{"email": email},
	})
	if err != nil {
		return nil, apperrors.Storage("profile query", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return models.UserFromItem(items[0])
}

// Profile returns the user record for the given id.
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	item, err := s.kv.Get(ctx, models.UserPK(userID), models.SKMeta)
	if err != nil {
		return nil, apperrors.Storage("profile get", err)
	}
	if item == nil {
		return nil, apperrors.NotFound("profile", userID)
	}
	return models.UserFromItem(item)
}

// ProfileUpdate carries the mutable profile fields. Role and scope changes
// go through the admin path, not here.
type ProfileUpdate struct {
	Name string
}

// UpdateProfile applies the mutable fields, bumps updatedAt and pushes
// the name change to the identity provider so the pool attribute does
// not drift from the profile record.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := map[string]interface{}{"updatedAt": models.Now()}
	if upd.Name != "" {
		set["name"] = upd.Name
		user.Name = upd.Name
	}
	err = s.kv.Update(ctx, storage.UpdateInput{
		PK:  models.UserPK(userID),
		SK:  models.SKMeta,
		Set: set,
	})
	if err != nil {
		return nil, apperrors.Storage("profile update", err)
	}
	user.UpdatedAt = set["updatedAt"].(string)

	if upd.Name != "" {
		if err := s.idp.UpdateAttributes(ctx, user.Email, map[string]string{"name": upd.Name}); err != nil {
			// The profile record is authoritative; a stale pool attribute
			// heals on the next update.
			s.log.WithError(err).WithField("userId", userID).Warn("identity attribute sync failed")
		}
	}
	return user, nil
}
