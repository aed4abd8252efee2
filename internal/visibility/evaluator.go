package visibility

import (
	"context"
	"errors"

	"sharescope.org/internal/directory"
)

// HasModuleAccess reports whether the profile enables the module. Any enabled
// entry for the module grants access; duplicate entries are tolerated. No
// entry, or no enabled entry, means no access.
func HasModuleAccess(profile directory.Profile, module string) bool {
	for _, entry := range profile.Permissions {
		if entry.Module == module && entry.Enabled {
			return true
		}
	}
	return false
}

// accessMemo answers "does this user have the module enabled" while fetching
// each profile at most once per resolution. Users sharing a profile are
// common, so this keeps a resolution at O(distinct profiles) store reads.
type accessMemo struct {
	store   directory.Store
	module  string
	granted map[string]bool
}

func newAccessMemo(store directory.Store, module string) *accessMemo {
	return &accessMemo{
		store:   store,
		module:  module,
		granted: make(map[string]bool),
	}
}

// allowed resolves the user's profile and evaluates the module flag. A user
// without a profile, or whose profile the directory sync has not written yet,
// has no access.
func (m *accessMemo) allowed(ctx context.Context, user directory.User) (bool, error) {
	if user.ProfileID == "" {
		return false, nil
	}
	if granted, ok := m.granted[user.ProfileID]; ok {
		return granted, nil
	}
	profile, err := m.store.ProfileWithPermissions(ctx, user.ProfileID)
	if errors.Is(err, directory.ErrNotFound) {
		m.granted[user.ProfileID] = false
		return false, nil
	}
	if err != nil {
		return false, err
	}
	granted := HasModuleAccess(profile, m.module)
	m.granted[user.ProfileID] = granted
	return granted, nil
}
