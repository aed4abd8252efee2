package visibility

import (
	"testing"

	"sharescope.org/internal/directory"
)

func TestHasModuleAccess(t *testing.T) {
	profile := directory.Profile{
		ID: "p1",
		Permissions: []directory.PermissionEntry{
			{Module: "Contacts", Enabled: true},
			{Module: "Leads", Enabled: false},
		},
	}

	if !HasModuleAccess(profile, "Contacts") {
		t.Fatalf("enabled entry must grant access")
	}
	if HasModuleAccess(profile, "Leads") {
		t.Fatalf("disabled entry must not grant access")
	}
	if HasModuleAccess(profile, "Deals") {
		t.Fatalf("absent entry must fail closed")
	}
	if HasModuleAccess(directory.Profile{ID: "empty"}, "Contacts") {
		t.Fatalf("profile without entries must fail closed")
	}
}

func TestHasModuleAccessToleratesDuplicates(t *testing.T) {
	profile := directory.Profile{
		ID: "p1",
		Permissions: []directory.PermissionEntry{
			{Module: "Contacts", Enabled: false},
			{Module: "Contacts", Enabled: true},
			{Module: "Contacts", Enabled: false},
		},
	}
	// Any enabled entry for the module counts as access.
	if !HasModuleAccess(profile, "Contacts") {
		t.Fatalf("duplicate entries with one enabled must grant access")
	}
}
