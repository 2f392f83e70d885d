package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedVisibilities(t *testing.T) {
	assert.ElementsMatch(t,
		[]Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization, VisibilitySystem},
		AllowedVisibilities(RoleSystemAdmin))
	assert.ElementsMatch(t,
		[]Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization},
		AllowedVisibilities(RoleOrgAdmin))
	assert.ElementsMatch(t,
		[]Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany},
		AllowedVisibilities(RoleCompanyAdmin))
	assert.ElementsMatch(t,
		[]Visibility{VisibilityPrivate},
		AllowedVisibilities(RoleUser))
}

func TestVisibilityAllowed(t *testing.T) {
	assert.False(t, VisibilityAllowed(RoleUser, VisibilityCompany))
	assert.True(t, VisibilityAllowed(RoleCompanyAdmin, VisibilityCompany))
	assert.False(t, VisibilityAllowed(RoleOrgAdmin, VisibilitySystem))
	assert.True(t, VisibilityAllowed(RoleSystemAdmin, VisibilitySystem))
}

func fileWith(owner string, vis Visibility, scope Scope) *FileRecord {
	return &FileRecord{FileID: "f1", UserID: owner, Visibility: vis, Scope: scope}
}

func TestCanAccessFile(t *testing.T) {
	scope := Scope{OrganizationID: "org-1", CompanyID: "c-1", DepartmentID: "d-1"}

	t.Run("owner always reads", func(t *testing.T) {
		f := fileWith("u1", VisibilityPrivate, scope)
		assert.True(t, CanAccessFile(f, Actor{UserID: "u1", Role: RoleUser}))
		assert.False(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser}))
	})

	t.Run("system admin reads everything", func(t *testing.T) {
		f := fileWith("u1", VisibilityPrivate, scope)
		assert.True(t, CanAccessFile(f, Actor{UserID: "admin", Role: RoleSystemAdmin}))
	})

	t.Run("system visibility is global", func(t *testing.T) {
		f := fileWith("u1", VisibilitySystem, scope)
		assert.True(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser}))
	})

	t.Run("organization requires matching org", func(t *testing.T) {
		f := fileWith("u1", VisibilityOrganization, scope)
		assert.True(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{OrganizationID: "org-1"}}))
		assert.False(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{OrganizationID: "org-2"}}))
	})

	t.Run("company requires matching company", func(t *testing.T) {
		f := fileWith("u1", VisibilityCompany, scope)
		assert.True(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{CompanyID: "c-1"}}))
		assert.False(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{CompanyID: "c-2"}}))
	})

	t.Run("department requires company and department", func(t *testing.T) {
		f := fileWith("u1", VisibilityDepartment, scope)
		assert.True(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{CompanyID: "c-1", DepartmentID: "d-1"}}))
		assert.False(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{CompanyID: "c-1", DepartmentID: "d-2"}}))
		assert.False(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{CompanyID: "c-2", DepartmentID: "d-1"}}))
	})

	t.Run("empty scope fields never match", func(t *testing.T) {
		f := fileWith("u1", VisibilityOrganization, Scope{})
		assert.False(t, CanAccessFile(f, Actor{UserID: "u2", Role: RoleUser, Scope: Scope{}}))
	})
}

func TestCanManageFile(t *testing.T) {
	f := fileWith("u1", VisibilityCompany, Scope{CompanyID: "c-1"})
	assert.True(t, CanManageFile(f, Actor{UserID: "u1", Role: RoleUser}))
	assert.True(t, CanManageFile(f, Actor{UserID: "x", Role: RoleSystemAdmin}))
	assert.False(t, CanManageFile(f, Actor{UserID: "u2", Role: RoleCompanyAdmin, Scope: Scope{CompanyID: "c-1"}}))
}

func TestCanAccessConversation(t *testing.T) {
	conv := &Conversation{ConversationID: "c1", UserID: "u1"}

	assert.True(t, CanAccessConversation(conv, Actor{UserID: "u1", Role: RoleUser}))
	assert.True(t, CanAccessConversation(conv, Actor{UserID: "root", Role: RoleSystemAdmin}))
	assert.False(t, CanAccessConversation(conv, Actor{UserID: "u2", Role: RoleUser}))
	assert.False(t, CanAccessConversation(conv, Actor{UserID: "u2", Role: RoleOrgAdmin, Scope: Scope{OrganizationID: "org-1"}}))
}

func TestScopeComplete(t *testing.T) {
	assert.True(t, ScopeComplete(RoleSystemAdmin, Scope{}))
	assert.True(t, ScopeComplete(RoleOrgAdmin, Scope{OrganizationID: "org-1"}))
	assert.False(t, ScopeComplete(RoleOrgAdmin, Scope{}))
	assert.True(t, ScopeComplete(RoleCompanyAdmin, Scope{OrganizationID: "org-1", CompanyID: "c-1"}))
	assert.False(t, ScopeComplete(RoleCompanyAdmin, Scope{OrganizationID: "org-1"}))
	assert.True(t, ScopeComplete(RoleUser, Scope{OrganizationID: "org-1", CompanyID: "c-1"}))
	assert.False(t, ScopeComplete(RoleUser, Scope{CompanyID: "c-1"}))
}

func TestCanCreateUser(t *testing.T) {
	sysAdmin := Actor{UserID: "s", Role: RoleSystemAdmin}
	orgAdmin := Actor{UserID: "o", Role: RoleOrgAdmin, Scope: Scope{OrganizationID: "org-1"}}
	companyAdmin := Actor{UserID: "c", Role: RoleCompanyAdmin, Scope: Scope{CompanyID: "c-1"}}
	user := Actor{UserID: "u", Role: RoleUser}

	assert.True(t, CanCreateUser(sysAdmin, RoleSystemAdmin, Scope{}))
	assert.True(t, CanCreateUser(sysAdmin, RoleUser, Scope{OrganizationID: "any"}))

	assert.True(t, CanCreateUser(orgAdmin, RoleUser, Scope{OrganizationID: "org-1", CompanyID: "c-1"}))
	assert.True(t, CanCreateUser(orgAdmin, RoleCompanyAdmin, Scope{OrganizationID: "org-1"}))
	assert.False(t, CanCreateUser(orgAdmin, RoleUser, Scope{OrganizationID: "org-2"}))
	assert.False(t, CanCreateUser(orgAdmin, RoleSystemAdmin, Scope{OrganizationID: "org-1"}))
	assert.False(t, CanCreateUser(orgAdmin, RoleOrgAdmin, Scope{OrganizationID: "org-1"}))

	assert.True(t, CanCreateUser(companyAdmin, RoleUser, Scope{CompanyID: "c-1"}))
	assert.False(t, CanCreateUser(companyAdmin, RoleUser, Scope{CompanyID: "c-2"}))
	assert.False(t, CanCreateUser(companyAdmin, RoleCompanyAdmin, Scope{CompanyID: "c-1"}))

	assert.False(t, CanCreateUser(user, RoleUser, Scope{}))
}

func TestCanSeeUser(t *testing.T) {
	orgAdmin := Actor{Role: RoleOrgAdmin, Scope: Scope{OrganizationID: "org-1"}}
	companyAdmin := Actor{Role: RoleCompanyAdmin, Scope: Scope{CompanyID: "c-1"}}

	inOrg := &User{UserID: "a", Scope: Scope{OrganizationID: "org-1"}}
	outOrg := &User{UserID: "b", Scope: Scope{OrganizationID: "org-2"}}
	inCompany := &User{UserID: "c", Scope: Scope{CompanyID: "c-1"}}

	assert.True(t, CanSeeUser(Actor{Role: RoleSystemAdmin}, outOrg))
	assert.True(t, CanSeeUser(orgAdmin, inOrg))
	assert.False(t, CanSeeUser(orgAdmin, outOrg))
	assert.True(t, CanSeeUser(companyAdmin, inCompany))
	assert.False(t, CanSeeUser(Actor{Role: RoleUser}, inOrg))
}
