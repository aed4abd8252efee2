package directory

import "context"

// Store describes the read operations the visibility engine needs from the
// synced directory. Implementations return ErrNotFound for absent rows; the
// engine decides which absences are errors and which are fail-closed states.
type Store interface {
	// RecordByID looks a record up by its local primary key.
	RecordByID(ctx context.Context, module, id string) (Record, error)
	// RecordByExternalID looks a record up by the identifier the CRM issued.
	RecordByExternalID(ctx context.Context, module, externalID string) (Record, error)

	UserByID(ctx context.Context, id string) (User, error)
	UserByExternalID(ctx context.Context, externalID string) (User, error)
	// ActiveUsers lists the organization's active users in stable order.
	ActiveUsers(ctx context.Context, organizationID string) ([]User, error)

	ProfileWithPermissions(ctx context.Context, profileID string) (Profile, error)
	Roles(ctx context.Context, organizationID string) ([]Role, error)

	// SharingRule returns the organization's rule for the module. When the
	// store holds more than one, the oldest wins; selection is deterministic.
	SharingRule(ctx context.Context, organizationID, module string) (SharingRule, error)
}
