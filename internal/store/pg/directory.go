package pg

import (
	"context"
	"database/sql"
	"errors"

	"sharescope.org/internal/directory"
)

func (s *Store) RecordByID(ctx context.Context, module, id string) (directory.Record, error) {
	if s.db == nil {
		return directory.Record{}, errors.New("database connection unavailable")
	}
	return s.scanRecord(s.db.QueryRowContext(ctx, `
		select id, module, external_id, organization_id, owner_external_id, owner_user_id, created_at, updated_at
		from records
		where module = $1 and id = $2
	`, module, id))
}

func (s *Store) RecordByExternalID(ctx context.Context, module, externalID string) (directory.Record, error) {
	if s.db == nil {
		return directory.Record{}, errors.New("database connection unavailable")
	}
	return s.scanRecord(s.db.QueryRowContext(ctx, `
		select id, module, external_id, organization_id, owner_external_id, owner_user_id, created_at, updated_at
		from records
		where module = $1 and external_id = $2
	`, module, externalID))
}

func (s *Store) scanRecord(row *sql.Row) (directory.Record, error) {
	var (
		rec      directory.Record
		orgID    sql.NullString
		ownerExt sql.NullString
		ownerUID sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Module, &rec.ExternalID, &orgID, &ownerExt, &ownerUID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Record{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Record{}, err
	}
	rec.OrganizationID = orgID.String
	rec.OwnerExternalID = ownerExt.String
	rec.OwnerUserID = ownerUID.String
	return rec, nil
}

const userColumns = `id, external_id, organization_id, email, active, profile_id, role_id, created_at, updated_at`

func (s *Store) UserByID(ctx context.Context, id string) (directory.User, error) {
	if s.db == nil {
		return directory.User{}, errors.New("database connection unavailable")
	}
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where id = $1
	`, id))
}

func (s *Store) UserByExternalID(ctx context.Context, externalID string) (directory.User, error) {
	if s.db == nil {
		return directory.User{}, errors.New("database connection unavailable")
	}
	return scanUser(s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where external_id = $1
	`, externalID))
}

func scanUser(row *sql.Row) (directory.User, error) {
	var (
		user      directory.User
		profileID sql.NullString
		roleID    sql.NullString
	)
	err := row.Scan(&user.ID, &user.ExternalID, &user.OrganizationID, &user.Email, &user.Active, &profileID, &roleID, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.User{}, err
	}
	user.ProfileID = profileID.String
	user.RoleID = roleID.String
	return user, nil
}

func (s *Store) ActiveUsers(ctx context.Context, organizationID string) ([]directory.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+userColumns+`
		from users
		where organization_id = $1 and active
		order by email
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []directory.User
	for rows.Next() {
		var (
			user      directory.User
			profileID sql.NullString
			roleID    sql.NullString
		)
		if err := rows.Scan(&user.ID, &user.ExternalID, &user.OrganizationID, &user.Email, &user.Active, &profileID, &roleID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		user.ProfileID = profileID.String
		user.RoleID = roleID.String
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) ProfileWithPermissions(ctx context.Context, profileID string) (directory.Profile, error) {
	if s.db == nil {
		return directory.Profile{}, errors.New("database connection unavailable")
	}
	var profile directory.Profile
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, name, created_at, updated_at
		from profiles
		where id = $1
	`, profileID).Scan(&profile.ID, &profile.OrganizationID, &profile.Name, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Profile{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Profile{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select module, enabled
		from profile_permissions
		where profile_id = $1
		order by module
	`, profileID)
	if err != nil {
		return directory.Profile{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry directory.PermissionEntry
		if err := rows.Scan(&entry.Module, &entry.Enabled); err != nil {
			return directory.Profile{}, err
		}
		profile.Permissions = append(profile.Permissions, entry)
	}
	if err := rows.Err(); err != nil {
		return directory.Profile{}, err
	}
	return profile, nil
}

func (s *Store) Roles(ctx context.Context, organizationID string) ([]directory.Role, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, name, reports_to, created_at, updated_at
		from roles
		where organization_id = $1
		order by name
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []directory.Role
	for rows.Next() {
		var (
			role      directory.Role
			reportsTo sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.OrganizationID, &role.Name, &reportsTo, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.ReportsTo = reportsTo.String
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// SharingRule picks the oldest rule for the (organization, module) pair. The
// CRM should only ever hold one, but a duplicated sync must still resolve
// deterministically, so selection orders by created_at with id as tiebreak.
func (s *Store) SharingRule(ctx context.Context, organizationID, module string) (directory.SharingRule, error) {
	if s.db == nil {
		return directory.SharingRule{}, errors.New("database connection unavailable")
	}
	var rule directory.SharingRule
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, module, share_type, created_at
		from sharing_rules
		where organization_id = $1 and module = $2
		order by created_at asc, id asc
		limit 1
	`, organizationID, module).Scan(&rule.ID, &rule.OrganizationID, &rule.Module, &rule.ShareType, &rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.SharingRule{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.SharingRule{}, err
	}
	return rule, nil
}
