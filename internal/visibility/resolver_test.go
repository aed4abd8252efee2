package visibility

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"sharescope.org/internal/directory"
)

// fakeStore is an in-memory directory.Store; slices keep their insertion
// order so results are deterministic.
type fakeStore struct {
	records  []directory.Record
	users    []directory.User
	profiles map[string]directory.Profile
	roles    []directory.Role
	rules    []directory.SharingRule

	rolesCalls   int
	profileCalls int
}

var _ directory.Store = (*fakeStore)(nil)

func (f *fakeStore) RecordByID(_ context.Context, module, id string) (directory.Record, error) {
	for _, rec := range f.records {
		if rec.Module == module && rec.ID == id {
			return rec, nil
		}
	}
	return directory.Record{}, directory.ErrNotFound
}

func (f *fakeStore) RecordByExternalID(_ context.Context, module, externalID string) (directory.Record, error) {
	for _, rec := range f.records {
		if rec.Module == module && rec.ExternalID == externalID {
			return rec, nil
		}
	}
	return directory.Record{}, directory.ErrNotFound
}

func (f *fakeStore) UserByID(_ context.Context, id string) (directory.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return directory.User{}, directory.ErrNotFound
}

func (f *fakeStore) UserByExternalID(_ context.Context, externalID string) (directory.User, error) {
	for _, u := range f.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return directory.User{}, directory.ErrNotFound
}

func (f *fakeStore) ActiveUsers(_ context.Context, organizationID string) ([]directory.User, error) {
	var result []directory.User
	for _, u := range f.users {
		if u.OrganizationID == organizationID && u.Active {
			result = append(result, u)
		}
	}
	return result, nil
}

func (f *fakeStore) ProfileWithPermissions(_ context.Context, profileID string) (directory.Profile, error) {
	f.profileCalls++
	p, ok := f.profiles[profileID]
	if !ok {
		return directory.Profile{}, directory.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) Roles(_ context.Context, organizationID string) ([]directory.Role, error) {
	f.rolesCalls++
	var result []directory.Role
	for _, r := range f.roles {
		if r.OrganizationID == organizationID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (f *fakeStore) SharingRule(_ context.Context, organizationID, module string) (directory.SharingRule, error) {
	for _, rule := range f.rules {
		if rule.OrganizationID == organizationID && rule.Module == module {
			return rule, nil
		}
	}
	return directory.SharingRule{}, directory.ErrNotFound
}

const org = "org-1"

func contactsProfile(id string, enabled bool) directory.Profile {
	return directory.Profile{
		ID:             id,
		OrganizationID: org,
		Name:           id,
		Permissions:    []directory.PermissionEntry{{Module: directory.ModuleContacts, Enabled: enabled}},
	}
}

func activeUser(id, ext, profileID, roleID string) directory.User {
	return directory.User{
		ID:             id,
		ExternalID:     ext,
		OrganizationID: org,
		Email:          id + "@example.com",
		Active:         true,
		ProfileID:      profileID,
		RoleID:         roleID,
	}
}

func contact(id, ext, ownerExt string) directory.Record {
	return directory.Record{
		ID:              id,
		Module:          directory.ModuleContacts,
		ExternalID:      ext,
		OrganizationID:  org,
		OwnerExternalID: ownerExt,
	}
}

func privateRule() directory.SharingRule {
	return directory.SharingRule{
		ID:             "rule-1",
		OrganizationID: org,
		Module:         directory.ModuleContacts,
		ShareType:      directory.SharePrivate,
	}
}

func newResolver(t *testing.T, store directory.Store, opts ...ResolverOption) *Resolver {
	t.Helper()
	r, err := NewResolver(store, opts...)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestResolvePrivateOwnerOnly(t *testing.T) {
	store := &fakeStore{
		records:  []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:    []directory.User{activeUser("u1", "crm-u1", "p1", "r1")},
		profiles: map[string]directory.Profile{"p1": contactsProfile("p1", true)},
		roles:    []directory.Role{{ID: "r1", OrganizationID: org, Name: "CEO"}},
		rules:    []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Result{UserIDs: []string{"crm-u1"}, AccessType: directory.SharePrivate, HierarchyUsed: true}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("result=%+v, want %+v", result, want)
	}
}

func TestResolvePublicFiltersByProfile(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users: []directory.User{
			activeUser("u1", "crm-u1", "p-on", ""),
			activeUser("u2", "crm-u2", "p-off", ""),
			activeUser("u3", "crm-u3", "p-on", ""),
		},
		profiles: map[string]directory.Profile{
			"p-on":  contactsProfile("p-on", true),
			"p-off": contactsProfile("p-off", false),
		},
		rules: []directory.SharingRule{{
			ID:             "rule-1",
			OrganizationID: org,
			Module:         directory.ModuleContacts,
			ShareType:      directory.SharePublic,
		}},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.AccessType != directory.SharePublic || result.HierarchyUsed {
		t.Fatalf("unexpected flags: %+v", result)
	}
	if !reflect.DeepEqual(result.UserIDs, []string{"crm-u1", "crm-u3"}) {
		t.Fatalf("unexpected user set: %v", result.UserIDs)
	}
	// u1 and u3 share a profile; the memo must fetch each profile once.
	if store.profileCalls != 2 {
		t.Fatalf("expected 2 profile fetches, got %d", store.profileCalls)
	}
}

func TestResolvePublicReadOnlyEchoesShareType(t *testing.T) {
	store := &fakeStore{
		records:  []directory.Record{contact("c1", "crm-c1", "")},
		users:    []directory.User{activeUser("u1", "crm-u1", "p1", "")},
		profiles: map[string]directory.Profile{"p1": contactsProfile("p1", true)},
		rules: []directory.SharingRule{{
			ID:             "rule-1",
			OrganizationID: org,
			Module:         directory.ModuleContacts,
			ShareType:      directory.SharePublicReadOnly,
		}},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.AccessType != directory.SharePublicReadOnly {
		t.Fatalf("share type not echoed: %v", result.AccessType)
	}
}

func TestResolvePrivateNoOwnerFailsClosed(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "")},
		rules:   []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Result{UserIDs: []string{}, AccessType: directory.SharePrivate, HierarchyUsed: false}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("result=%+v, want %+v", result, want)
	}
}

func TestResolveRecordNotFound(t *testing.T) {
	store := &fakeStore{rules: []directory.SharingRule{privateRule()}}

	_, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "nope")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestResolveByExternalIdentifier(t *testing.T) {
	store := &fakeStore{
		records:  []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:    []directory.User{activeUser("u1", "crm-u1", "p1", "")},
		profiles: map[string]directory.Profile{"p1": contactsProfile("p1", true)},
		rules:    []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "crm-c1")
	if err != nil {
		t.Fatalf("Resolve by external id: %v", err)
	}
	if !reflect.DeepEqual(result.UserIDs, []string{"crm-u1"}) {
		t.Fatalf("unexpected user set: %v", result.UserIDs)
	}
}

func TestResolvePrivateHierarchySeniority(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "crm-mgr")},
		users: []directory.User{
			activeUser("u-ceo", "crm-ceo", "p-on", "r-ceo"),
			activeUser("u-mgr", "crm-mgr", "p-on", "r-mgr"),
			activeUser("u-peer", "crm-peer", "p-on", "r-mgr2"),
			activeUser("u-rep", "crm-rep", "p-on", "r-rep"),
			activeUser("u-blind", "crm-blind", "p-off", "r-ceo"),
			activeUser("u-norole", "crm-norole", "p-on", ""),
		},
		profiles: map[string]directory.Profile{
			"p-on":  contactsProfile("p-on", true),
			"p-off": contactsProfile("p-off", false),
		},
		roles: []directory.Role{
			{ID: "r-ceo", OrganizationID: org, Name: "CEO"},
			{ID: "r-mgr", OrganizationID: org, Name: "Manager", ReportsTo: "r-ceo"},
			{ID: "r-mgr2", OrganizationID: org, Name: "Manager EU", ReportsTo: "r-ceo"},
			{ID: "r-rep", OrganizationID: org, Name: "Rep", ReportsTo: "r-mgr"},
		},
		rules: []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.HierarchyUsed {
		t.Fatalf("hierarchy must be consulted for a roled owner")
	}
	// Owner first, then equal-or-more-senior roled users with access in
	// listing order. u-peer sits at the owner's level and is included;
	// u-rep is junior, u-blind lacks the permission, u-norole has no role.
	want := []string{"crm-mgr", "crm-ceo", "crm-peer"}
	if !reflect.DeepEqual(result.UserIDs, want) {
		t.Fatalf("user set=%v, want %v", result.UserIDs, want)
	}
}

func TestResolvePrivateOwnerLacksAccess(t *testing.T) {
	store := &fakeStore{
		records:  []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:    []directory.User{activeUser("u1", "crm-u1", "p-off", "r1")},
		profiles: map[string]directory.Profile{"p-off": contactsProfile("p-off", false)},
		roles:    []directory.Role{{ID: "r1", OrganizationID: org, Name: "CEO"}},
		rules:    []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.UserIDs) != 0 || result.HierarchyUsed {
		t.Fatalf("owner without access caps everyone: %+v", result)
	}
}

func TestResolvePrivateOwnerNotSynced(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "crm-ghost")},
		rules:   []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("unknown owner is a fail-closed state, not an error: %v", err)
	}
	if len(result.UserIDs) != 0 {
		t.Fatalf("expected empty result, got %v", result.UserIDs)
	}
}

func TestResolvePrivateOwnerWithoutRole(t *testing.T) {
	store := &fakeStore{
		records:  []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:    []directory.User{activeUser("u1", "crm-u1", "p1", "")},
		profiles: map[string]directory.Profile{"p1": contactsProfile("p1", true)},
		rules:    []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := Result{UserIDs: []string{"crm-u1"}, AccessType: directory.SharePrivate, HierarchyUsed: false}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("result=%+v, want %+v", result, want)
	}
}

func TestResolvePrivateOwnerRoleNotSynced(t *testing.T) {
	// The owner references a role the directory has not written yet; the
	// resolver degrades to the owner alone instead of failing.
	store := &fakeStore{
		records:  []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:    []directory.User{activeUser("u1", "crm-u1", "p1", "r-unsynced")},
		profiles: map[string]directory.Profile{"p1": contactsProfile("p1", true)},
		roles:    []directory.Role{{ID: "r-other", OrganizationID: org, Name: "Other"}},
		rules:    []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(result.UserIDs, []string{"crm-u1"}) || result.HierarchyUsed {
		t.Fatalf("expected owner-only fallback, got %+v", result)
	}
}

func TestResolveOwnerDerivedViaLinkedUser(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{{
			ID:          "c1",
			Module:      directory.ModuleContacts,
			ExternalID:  "crm-c1",
			OwnerUserID: "u1",
		}},
		users:    []directory.User{activeUser("u1", "crm-u1", "p1", "")},
		profiles: map[string]directory.Profile{"p1": contactsProfile("p1", true)},
		rules:    []directory.SharingRule{privateRule()},
	}

	result, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(result.UserIDs, []string{"crm-u1"}) {
		t.Fatalf("owner not derived through linked user: %v", result.UserIDs)
	}
}

func TestResolveOrganizationUndeterminable(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{{
			ID:         "c1",
			Module:     directory.ModuleContacts,
			ExternalID: "crm-c1",
		}},
		rules: []directory.SharingRule{privateRule()},
	}

	_, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestResolveMissingSharingRule(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:   []directory.User{activeUser("u1", "crm-u1", "p1", "")},
	}

	_, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestResolveUnsupportedShareType(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:   []directory.User{activeUser("u1", "crm-u1", "p1", "")},
		rules: []directory.SharingRule{{
			ID:             "rule-1",
			OrganizationID: org,
			Module:         directory.ModuleContacts,
			ShareType:      directory.ShareType("team"),
		}},
	}

	_, err := newResolver(t, store).Resolve(context.Background(), directory.ModuleContacts, "c1")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for unknown share type, got %v", err)
	}
}

func TestResolveUnknownModule(t *testing.T) {
	store := &fakeStore{}
	_, err := newResolver(t, store).Resolve(context.Background(), "Invoices", "c1")
	if !errors.Is(err, directory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := newResolver(t, store).Resolve(context.Background(), "", ""); !errors.Is(err, directory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank arguments, got %v", err)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "crm-mgr")},
		users: []directory.User{
			activeUser("u-ceo", "crm-ceo", "p-on", "r-ceo"),
			activeUser("u-mgr", "crm-mgr", "p-on", "r-mgr"),
		},
		profiles: map[string]directory.Profile{"p-on": contactsProfile("p-on", true)},
		roles: []directory.Role{
			{ID: "r-ceo", OrganizationID: org, Name: "CEO"},
			{ID: "r-mgr", OrganizationID: org, Name: "Manager", ReportsTo: "r-ceo"},
		},
		rules: []directory.SharingRule{privateRule()},
	}
	resolver := newResolver(t, store)

	first, err := resolver.Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), directory.ModuleContacts, "c1")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ across identical calls: %+v vs %+v", first, second)
	}
}

func TestResolveReusesCachedHierarchy(t *testing.T) {
	store := &fakeStore{
		records: []directory.Record{contact("c1", "crm-c1", "crm-u1")},
		users:   []directory.User{activeUser("u1", "crm-u1", "p1", "r1")},
		profiles: map[string]directory.Profile{
			"p1": contactsProfile("p1", true),
		},
		roles: []directory.Role{{ID: "r1", OrganizationID: org, Name: "CEO"}},
		rules: []directory.SharingRule{privateRule()},
	}
	cache := NewHierarchyCache(16, time.Minute)
	resolver := newResolver(t, store, WithHierarchyCache(cache))

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve(context.Background(), directory.ModuleContacts, "c1"); err != nil {
			t.Fatalf("Resolve #%d: %v", i+1, err)
		}
	}
	if store.rolesCalls != 1 {
		t.Fatalf("expected a single role fetch with a warm cache, got %d", store.rolesCalls)
	}
}
