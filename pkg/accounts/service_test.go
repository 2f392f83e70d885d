package accounts

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/identity"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService() (*Service, *storage.MemoryKV, *identity.FakeProvider) {
	kv := storage.NewMemoryKV()
	idp := identity.NewFakeProvider()
	return NewService(idp, kv, testLogger()), kv, idp
}

func TestSignUpSignInFlow(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "Passw0rd!", Name: "Alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.UserID)
	assert.False(t, res.Confirmed)

	require.NoError(t, svc.Confirm(ctx, "a@example.com", "123456"))

	signin, err := svc.SignIn(ctx, "a@example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, signin.Tokens.AccessToken)
	assert.Equal(t, res.UserID, signin.User.UserID)
	assert.Equal(t, models.RoleUser, signin.User.Role)
	assert.Equal(t, "Alice", signin.User.Name)
}

func TestSignUpValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "x", Name: "A"})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "x", Name: "A"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestSignInFailures(t *testing.T) {
	svc, kv, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "Passw0rd!", Name: "A"})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "a@example.com", "wrong")
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthFailure))

	_, err = svc.SignIn(ctx, "nobody@example.com", "Passw0rd!")
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthFailure))

	t.Run("identity without profile", func(t *testing.T) {
		// Drop the profile record while the identity remains.
		users, err := kv.Query(ctx, storage.QueryInput{Index: models.IndexGSI1, PartitionKey: models.PartitionUsers})
		require.NoError(t, err)
		require.Len(t, users, 1)
		pk := users[0][models.AttrPK].(string)
		require.NoError(t, kv.BatchDelete(ctx, []storage.Key{{PK: pk, SK: models.SKMeta}}))

		_, err = svc.SignIn(ctx, "a@example.com", "Passw0rd!")
		assert.True(t, apperrors.IsKind(err, apperrors.KindAuthFailure))
	})
}

func TestProfileLifecycle(t *testing.T) {
	svc, _, idp := newTestService()
	ctx := context.Background()

	res, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "x", Name: "Alice"})
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", profile.Email)

	updated, err := svc.UpdateProfile(ctx, res.UserID, ProfileUpdate{Name: "Alice Smith"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", updated.Name)

	again, err := svc.Profile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", again.Name)

	// The identity pool attribute follows the profile record.
	name, ok := idp.Attribute("a@example.com", "name")
	assert.True(t, ok)
	assert.Equal(t, "Alice Smith", name)

	_, err = svc.Profile(ctx, "missing")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = svc.UpdateProfile(ctx, "missing", ProfileUpdate{Name: "x"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

var (
	sysAdmin     = models.Actor{UserID: "sys", Role: models.RoleSystemAdmin}
	orgAdmin     = models.Actor{UserID: "oa", Role: models.RoleOrgAdmin, Scope: models.Scope{OrganizationID: "org-1"}}
	companyAdmin = models.Actor{UserID: "ca", Role: models.RoleCompanyAdmin, Scope: models.Scope{OrganizationID: "org-1", CompanyID: "c-1"}}
	plainUser    = models.Actor{UserID: "pu", Role: models.RoleUser, Scope: models.Scope{OrganizationID: "org-1", CompanyID: "c-1"}}
)

func seedUsers(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	seeds := []CreateUserInput{
		{Actor: sysAdmin, Email: "u1@org1c1.com", Scope: models.Scope{OrganizationID: "org-1", CompanyID: "c-1"}},
		{Actor: sysAdmin, Email: "u2@org1c2.com", Scope: models.Scope{OrganizationID: "org-1", CompanyID: "c-2"}},
		{Actor: sysAdmin, Email: "u3@org2.com", Scope: models.Scope{OrganizationID: "org-2", CompanyID: "c-9"}},
	}
	for _, seed := range seeds {
		_, err := svc.CreateUser(ctx, seed)
		require.NoError(t, err)
	}
}

func TestListUsersScopes(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	seedUsers(t, svc)

	emails := func(users []*models.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Email)
		}
		return out
	}

	t.Run("system admin sees all", func(t *testing.T) {
		users, err := svc.ListUsers(ctx, ListUsersInput{Actor: sysAdmin})
		require.NoError(t, err)
		assert.Len(t, users, 3)
	})

	t.Run("system admin can narrow by organization", func(t *testing.T) {
		users, err := svc.ListUsers(ctx, ListUsersInput{Actor: sysAdmin, OrganizationID: "org-2"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u3@org2.com"}, emails(users))
	})

	t.Run("org admin is forced to own organization", func(t *testing.T) {
		users, err := svc.ListUsers(ctx, ListUsersInput{Actor: orgAdmin, OrganizationID: "org-2"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1@org1c1.com", "u2@org1c2.com"}, emails(users))
	})

	t.Run("company admin is forced to own company", func(t *testing.T) {
		users, err := svc.ListUsers(ctx, ListUsersInput{Actor: companyAdmin})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1@org1c1.com"}, emails(users))
	})

	t.Run("plain users may not list", func(t *testing.T) {
		_, err := svc.ListUsers(ctx, ListUsersInput{Actor: plainUser})
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenRole))
	})
}

func TestCreateUserAuthorization(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	t.Run("org admin cannot mint system admins", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{
			Actor: orgAdmin,
			Email: "x@example.com",
			Role:  models.RoleSystemAdmin,
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenRole))
	})

	t.Run("org admin cannot reach another organization", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{
			Actor: orgAdmin,
			Email: "x@example.com",
			Scope: models.Scope{OrganizationID: "org-2"},
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenRole))
	})

	t.Run("plain users cannot create", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{Actor: plainUser, Email: "x@example.com"})
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenRole))
	})

	t.Run("email required", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{Actor: sysAdmin})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{Actor: sysAdmin, Email: "x@example.com", Role: "root"})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("enclosing scope ids are required", func(t *testing.T) {
		// Even a system admin cannot mint an org admin without an
		// organization or a user without a company.
		_, err := svc.CreateUser(ctx, CreateUserInput{
			Actor: sysAdmin,
			Email: "x@example.com",
			Role:  models.RoleOrgAdmin,
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

		_, err = svc.CreateUser(ctx, CreateUserInput{
			Actor: sysAdmin,
			Email: "x@example.com",
			Role:  models.RoleCompanyAdmin,
			Scope: models.Scope{OrganizationID: "org-1"},
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

		_, err = svc.CreateUser(ctx, CreateUserInput{
			Actor: sysAdmin,
			Email: "x@example.com",
			Scope: models.Scope{OrganizationID: "org-1"},
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

		_, err = svc.CreateUser(ctx, CreateUserInput{
			Actor: sysAdmin,
			Email: "scoped@example.com",
			Role:  models.RoleCompanyAdmin,
			Scope: models.Scope{OrganizationID: "org-1", CompanyID: "c-1"},
		})
		assert.NoError(t, err)
	})
}

func TestCreateUserProvisioning(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.CreateUser(ctx, CreateUserInput{
		Actor: companyAdmin,
		Email: "new@example.com",
		Name:  "New User",
		Scope: models.Scope{OrganizationID: "org-1", CompanyID: "c-1", DepartmentID: "d-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.Equal(t, "d-7", res.User.DepartmentID)
	assert.Len(t, res.TemporaryPassword, 16)
	assert.NotEmpty(t, res.Directive)

	// The generated temporary password works for sign-in.
	signin, err := svc.SignIn(ctx, "new@example.com", res.TemporaryPassword)
	require.NoError(t, err)
	assert.Equal(t, res.User.UserID, signin.User.UserID)

	t.Run("explicit temporary password is kept", func(t *testing.T) {
		res, err := svc.CreateUser(ctx, CreateUserInput{
			Actor:             sysAdmin,
			Email:             "fixed@example.com",
			Scope:             models.Scope{OrganizationID: "org-1", CompanyID: "c-1"},
			TemporaryPassword: "Chosen-Pass-99",
		})
		require.NoError(t, err)
		assert.Equal(t, "Chosen-Pass-99", res.TemporaryPassword)
	})
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{0, 12, 16, 32} {
		pw, err := GeneratePassword(length)
		require.NoError(t, err)

		want := length
		if want < 12 {
			want = 12
		}
		assert.Len(t, pw, want)

		assert.True(t, strings.ContainsAny(pw, passwordLower), "missing lowercase: %s", pw)
		assert.True(t, strings.ContainsAny(pw, passwordUpper), "missing uppercase: %s", pw)
		assert.True(t, strings.ContainsAny(pw, passwordDigits), "missing digit: %s", pw)
		assert.True(t, strings.ContainsAny(pw, passwordSymbols), "missing symbol: %s", pw)
		assert.False(t, strings.ContainsAny(pw, "lIO01"), "ambiguous glyph in %s", pw)
	}
}
