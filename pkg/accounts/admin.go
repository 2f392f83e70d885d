package accounts

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

// ListUsersInput narrows the admin listing. Filters are forced to the
// actor's own scope for non-system admins.
type ListUsersInput struct {
	Actor          models.Actor
	OrganizationID string
	CompanyID      string
}

// ListUsers returns the users the actor may administer, newest first.
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) ([]*models.User, error) {
	if !models.CanListUsers(in.Actor) {
		return nil, apperrors.ForbiddenRole("user listing requires an admin role")
	}

	filter := map[string]interface{}{}
	switch in.Actor.Role {
	case models.RoleSystemAdmin:
		if in.OrganizationID != "" {
			filter["organizationId"] = in.OrganizationID
		}
	case models.RoleOrgAdmin:
		filter["organizationId"] = in.Actor.OrganizationID
	case models.RoleCompanyAdmin:
		filter["companyId"] = in.Actor.CompanyID
	}

	items, err := s.kv.Query(ctx, storage.QueryInput{
		Index:        models.IndexGSI1,
		PartitionKey: models.PartitionUsers,
		ScanForward:  false,
		Filter:       filter,
	})
	if err != nil {
		return nil, apperrors.Storage("user query", err)
	}

	out := make([]*models.User, 0, len(items))
	for _, item := range items {
		user, err := models.UserFromItem(item)
		if err != nil {
			s.log.WithError(err).Warn("skipping undecodable user item")
			continue
		}
		if !models.CanSeeUser(in.Actor, user) {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

// CreateUserInput is the decoded admin create body.
type CreateUserInput struct {
	Actor             models.Actor
	Email             string
	Name              string
	Role              models.Role
	Scope             models.Scope
	TemporaryPassword string
}

// CreateUserResult echoes the provisioned user. TemporaryPassword is
// returned exactly once; it is never persisted.
type CreateUserResult struct {
	User              *models.User `json:"user"`
	TemporaryPassword string       `json:"temporaryPassword"`
	Directive         string       `json:"directive"`
}

// CreateUser provisions an identity with a suppressed invitation mail and
// writes the profile record with the requested role and scope.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*CreateUserResult, error) {
	if in.Email == "" {
		return nil, apperrors.Validation("email is required")
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validation("unknown role: %s", in.Role)
	}
	if !models.CanCreateUser(in.Actor, in.Role, in.Scope) {
		return nil, apperrors.ForbiddenRole("actor may not create this role in this scope")
	}
	if !models.ScopeComplete(in.Role, in.Scope) {
		return nil, apperrors.Validation("role %s requires all enclosing scope ids", in.Role)
	}

	password := in.TemporaryPassword
	if password == "" {
		var err error
		password, err = GeneratePassword(16)
		if err != nil {
			return nil, apperrors.Storage("password generation", err)
		}
	}

	attrs := map[string]string{"email": in.Email}
	identityID, err := s.idp.AdminCreateUser(ctx, in.Email, in.Name, attrs, password)
	if err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	now := models.Now()
	user := &models.User{
		UserID:    identityID,
		Email:     in.Email,
		Name:      in.Name,
		Role:      in.Role,
		Scope:     in.Scope,
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

	s.log.WithFields(logrus.Fields{
		"userId":    identityID,
		"role":      in.Role,
		"createdBy": in.Actor.UserID,
	}).Info("admin created user")

	return &CreateUserResult{
		User:              user,
		TemporaryPassword: password,
		Directive:         "the user must change this password on first sign-in",
	}, nil
}
