package directory

import "time"

// ShareType is the organization-wide default visibility policy for a module.
type ShareType string

const (
	SharePrivate        ShareType = "private"
	SharePublic         ShareType = "public"
	SharePublicReadOnly ShareType = "public_read_only"
)

// Valid reports whether the share type is one the engine understands.
func (t ShareType) Valid() bool {
	switch t {
	case SharePrivate, SharePublic, SharePublicReadOnly:
		return true
	}
	return false
}

// Organization mirrors a CRM organization the directory is scoped to.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User mirrors a CRM user. ExternalID is the identifier the CRM issued;
// ID is the local key. ProfileID and RoleID are empty while the directory
// sync has not populated them yet.
type User struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"external_id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	Active         bool      `json:"active"`
	ProfileID      string    `json:"profile_id,omitempty"`
	RoleID         string    `json:"role_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Role is a node in the manager/subordinate hierarchy. ReportsTo is empty
// for a root role.
type Role struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	ReportsTo      string    `json:"reports_to,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PermissionEntry is one (module, enabled) flag on a profile.
type PermissionEntry struct {
	Module  string `json:"module"`
	Enabled bool   `json:"enabled"`
}

// Profile is a named bundle of per-module permission flags, assigned to
// users independently of their role.
type Profile struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	Name           string            `json:"name"`
	Permissions    []PermissionEntry `json:"permissions"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// SharingRule is the per-module, per-organization visibility policy.
type SharingRule struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Module         string    `json:"module"`
	ShareType      ShareType `json:"share_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// Record is the slice of a CRM record the engine needs. OwnerExternalID,
// OrganizationID and OwnerUserID may each be empty; the resolver derives
// what is missing through the owner fallback chain.
type Record struct {
	ID              string    `json:"id"`
	Module          string    `json:"module"`
	ExternalID      string    `json:"external_id"`
	OrganizationID  string    `json:"organization_id,omitempty"`
	OwnerExternalID string    `json:"owner_external_id,omitempty"`
	OwnerUserID     string    `json:"owner_user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
