package directory

// ModuleContacts is the only CRM module with visibility support today.
// Supporting another module means adding its name here and registering an
// ownership extractor below, not loosening the record type.
const ModuleContacts = "Contacts"

// Ownership carries the references a record exposes about who owns it and
// which organization it belongs to. Any field may be empty.
type Ownership struct {
	OwnerExternalID string
	OwnerUserID     string
	OrganizationID  string
}

type ownershipFunc func(Record) Ownership

var ownershipByModule = map[string]ownershipFunc{
	ModuleContacts: contactOwnership,
}

// KnownModule reports whether visibility resolution is supported for the module.
func KnownModule(name string) bool {
	_, ok := ownershipByModule[name]
	return ok
}

// ExtractOwnership returns the owner/organization references stored directly
// on the record, using the module's extractor. The second return is false for
// unsupported modules.
func ExtractOwnership(rec Record) (Ownership, bool) {
	fn, ok := ownershipByModule[rec.Module]
	if !ok {
		return Ownership{}, false
	}
	return fn(rec), true
}

func contactOwnership(rec Record) Ownership {
	return Ownership{
		OwnerExternalID: rec.OwnerExternalID,
		OwnerUserID:     rec.OwnerUserID,
		OrganizationID:  rec.OrganizationID,
	}
}
