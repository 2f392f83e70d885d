// Package models defines the persistent entities, the composite-key layout
// of the main table, and the role/visibility access policy.
package models

import (
	"time"
)

// Role is an actor's authority level.
type Role string

const (
	RoleSystemAdmin  Role = "system_admin"
	RoleOrgAdmin     Role = "org_admin"
	RoleCompanyAdmin Role = "company_admin"
	RoleUser         Role = "user"
)

// Valid reports whether the role is one of the four known levels.
func (r Role) Valid() bool {
	switch r {
	case RoleSystemAdmin, RoleOrgAdmin, RoleCompanyAdmin, RoleUser:
		return true
	}
	return false
}

// Visibility is the broadest scope at which a file is readable.
type Visibility string

const (
	VisibilityPrivate      Visibility = "private"
	VisibilityDepartment   Visibility = "department"
	VisibilityCompany      Visibility = "company"
	VisibilityOrganization Visibility = "organization"
	VisibilitySystem       Visibility = "system"
)

// Category classifies what a file is used for.
type Category string

const (
	CategoryChatAttachment Category = "chat_attachment"
	CategoryRAGSource      Category = "rag_source"
	CategoryKnowledgeBase  Category = "knowledge_base"
)

// FileStatus is the lifecycle state of an uploaded file.
type FileStatus string

const (
	FileStatusUploading  FileStatus = "uploading"
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusError      FileStatus = "error"
)

// Scope is the tenant tuple attached to a user or file. Some components
// may be absent depending on the owner's role.
type Scope struct {
	OrganizationID string `json:"organizationId,omitempty"`
	CompanyID      string `json:"companyId,omitempty"`
	DepartmentID   string `json:"departmentId,omitempty"`
}

// Actor is the authenticated principal evaluated by the access policy.
type Actor struct {
	UserID string `json:"userId"`
	Role   Role   `json:"userRole"`
	Scope
}

// timeFormat keeps timestamps lexicographically sortable inside sort keys.
const timeFormat = "2006-01-02T15:04:05.000Z"

// Now returns the current UTC time in the table's timestamp format.
func Now() string {
	return time.Now().UTC().Format(timeFormat)
}

// FormatTime renders t in the table's timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// NowAfter returns the current timestamp, bumped by one millisecond when
// the clock has not moved past prev. Sort keys built from successive calls
// stay strictly ordered within a partition.
func NowAfter(prev string) string {
	now := Now()
	if now > prev {
		return now
	}
	t, err := time.Parse(timeFormat, prev)
	if err != nil {
		return now
	}
	return FormatTime(t.Add(time.Millisecond))
}
