package models

// AllowedVisibilities returns the visibility set a role may create or
// relabel files to. This table is the authoritative matrix.
func AllowedVisibilities(role Role) []Visibility {
	switch role {
	case RoleSystemAdmin:
		return []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization, VisibilitySystem}
	case RoleOrgAdmin:
		return []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany, VisibilityOrganization}
	case RoleCompanyAdmin:
		return []Visibility{VisibilityPrivate, VisibilityDepartment, VisibilityCompany}
	default:
		return []Visibility{VisibilityPrivate}
	}
}

// VisibilityAllowed reports whether a role may label files with the given
// visibility.
func VisibilityAllowed(role Role, visibility Visibility) bool {
	for _, v := range AllowedVisibilities(role) {
		if v == visibility {
			return true
		}
	}
	return false
}

// CanAccessFile is the access predicate consulted on every cross-tenant
// read. It is pure so listing, reading, writing and deleting paths can all
// share it, and tests can exercise it without storage.
func CanAccessFile(file *FileRecord, actor Actor) bool {
	if file.UserID == actor.UserID {
		return true
	}
	if actor.Role == RoleSystemAdmin {
		return true
	}
	switch file.Visibility {
	case VisibilitySystem:
		return true
	case VisibilityOrganization:
		return file.OrganizationID != "" && file.OrganizationID == actor.OrganizationID
	case VisibilityCompany:
		return file.CompanyID != "" && file.CompanyID == actor.CompanyID
	case VisibilityDepartment:
		return file.CompanyID != "" && file.CompanyID == actor.CompanyID &&
			file.DepartmentID != "" && file.DepartmentID == actor.DepartmentID
	}
	return false
}

// CanManageFile reports whether the actor may relabel or delete the file.
func CanManageFile(file *FileRecord, actor Actor) bool {
	return file.UserID == actor.UserID || actor.Role == RoleSystemAdmin
}

// CanAccessConversation reports whether the actor may read, extend or
// delete the conversation. Conversations are private to their owner;
// only a system admin crosses that line.
func CanAccessConversation(conv *Conversation, actor Actor) bool {
	return conv.UserID == actor.UserID || actor.Role == RoleSystemAdmin
}

// ScopeComplete reports whether the scope carries every enclosing id the
// target role requires: org admins need an organization, company admins
// and plain users need an organization and a company.
func ScopeComplete(role Role, scope Scope) bool {
	switch role {
	case RoleSystemAdmin:
		return true
	case RoleOrgAdmin:
		return scope.OrganizationID != ""
	default:
		return scope.OrganizationID != "" && scope.CompanyID != ""
	}
}

// CanCreateUser enforces the admin creation matrix:
//
//	system_admin  -> any role, any scope
//	org_admin     -> company_admin or user, within their organization
//	company_admin -> user, within their company
func CanCreateUser(actor Actor, targetRole Role, targetScope Scope) bool {
	switch actor.Role {
	case RoleSystemAdmin:
		return true
	case RoleOrgAdmin:
		if targetRole != RoleCompanyAdmin && targetRole != RoleUser {
			return false
		}
		return targetScope.OrganizationID != "" && targetScope.OrganizationID == actor.OrganizationID
	case RoleCompanyAdmin:
		if targetRole != RoleUser {
			return false
		}
		return targetScope.CompanyID != "" && targetScope.CompanyID == actor.CompanyID
	}
	return false
}

// CanListUsers reports whether the actor may call the user listing at all.
func CanListUsers(actor Actor) bool {
	switch actor.Role {
	case RoleSystemAdmin, RoleOrgAdmin, RoleCompanyAdmin:
		return true
	}
	return false
}

// CanSeeUser reports whether an admin listing for the actor may include u.
func CanSeeUser(actor Actor, u *User) bool {
	switch actor.Role {
	case RoleSystemAdmin:
		return true
	case RoleOrgAdmin:
		return u.OrganizationID == actor.OrganizationID
	case RoleCompanyAdmin:
		return u.CompanyID == actor.CompanyID
	}
	return false
}
