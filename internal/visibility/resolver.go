package visibility

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sharescope.org/internal/directory"
	"sharescope.org/internal/obs"
)

// Result is the engine's sole output: the ordered unique set of user external
// identifiers allowed to view the record, tagged with the access type applied
// and whether the role hierarchy was consulted for the decision.
type Result struct {
	UserIDs       []string            `json:"user_ids"`
	AccessType    directory.ShareType `json:"access_type"`
	HierarchyUsed bool                `json:"hierarchy_used"`
}

// Resolver computes record visibility from a directory snapshot. It holds no
// mutable state across calls and performs only reads, so concurrent Resolve
// calls are safe.
type Resolver struct {
	store directory.Store
	cache *HierarchyCache
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHierarchyCache makes the resolver reuse per-organization hierarchy
// snapshots instead of rebuilding on every private resolution.
func WithHierarchyCache(cache *HierarchyCache) ResolverOption {
	return func(r *Resolver) { r.cache = cache }
}

// NewResolver constructs a Resolver over the given directory store.
func NewResolver(store directory.Store, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("directory store is required")
	}
	r := &Resolver{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve computes the set of user external identifiers permitted to view the
// record. recordID may be the local primary key or the CRM-issued external
// identifier; the primary lookup wins when both match.
func (r *Resolver) Resolve(ctx context.Context, module, recordID string) (Result, error) {
	module = strings.TrimSpace(module)
	recordID = strings.TrimSpace(recordID)
	if module == "" || recordID == "" {
		return Result{}, fmt.Errorf("%w: module and record id are required", directory.ErrInvalidInput)
	}
	if !directory.KnownModule(module) {
		return Result{}, fmt.Errorf("%w: unsupported module %q", directory.ErrInvalidInput, module)
	}

	rec, err := r.lookupRecord(ctx, module, recordID)
	if err != nil {
		return Result{}, err
	}

	ownerExternalID, organizationID, err := r.deriveOwnership(ctx, rec)
	if err != nil {
		return Result{}, err
	}

	rule, err := r.store.SharingRule(ctx, organizationID, module)
	if errors.Is(err, directory.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: no sharing rule for module %q in organization %s", ErrConfiguration, module, organizationID)
	}
	if err != nil {
		return Result{}, err
	}

	switch rule.ShareType {
	case directory.SharePublic, directory.SharePublicReadOnly:
		return r.resolvePublic(ctx, organizationID, module, rule.ShareType)
	case directory.SharePrivate:
		return r.resolvePrivate(ctx, organizationID, module, ownerExternalID)
	default:
		// Intentionally strict: an unknown policy value must surface, not
		// silently default to private or public.
		return Result{}, fmt.Errorf("%w: unsupported share type %q", ErrConfiguration, rule.ShareType)
	}
}

func (r *Resolver) lookupRecord(ctx context.Context, module, recordID string) (directory.Record, error) {
	rec, err := r.store.RecordByID(ctx, module, recordID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, directory.ErrNotFound) {
		return directory.Record{}, err
	}
	rec, err = r.store.RecordByExternalID(ctx, module, recordID)
	if errors.Is(err, directory.ErrNotFound) {
		return directory.Record{}, fmt.Errorf("%w: %s %q", ErrRecordNotFound, module, recordID)
	}
	if err != nil {
		return directory.Record{}, err
	}
	return rec, nil
}

// deriveOwnership determines the record's owner external id and organization.
// Fields stored on the record win; otherwise the linked local user is
// consulted; a record carrying only the owner's external id costs one more
// indirect lookup. The chain stops at the first success. A missing owner is a
// valid outcome; a missing organization is not.
func (r *Resolver) deriveOwnership(ctx context.Context, rec directory.Record) (string, string, error) {
	own, ok := directory.ExtractOwnership(rec)
	if !ok {
		return "", "", fmt.Errorf("%w: unsupported module %q", directory.ErrInvalidInput, rec.Module)
	}
	ownerExternalID := own.OwnerExternalID
	organizationID := own.OrganizationID
	if ownerExternalID != "" && organizationID != "" {
		return ownerExternalID, organizationID, nil
	}

	switch {
	case own.OwnerUserID != "":
		user, err := r.store.UserByID(ctx, own.OwnerUserID)
		if err == nil {
			if ownerExternalID == "" {
				ownerExternalID = user.ExternalID
			}
			if organizationID == "" {
				organizationID = user.OrganizationID
			}
		} else if !errors.Is(err, directory.ErrNotFound) {
			return "", "", err
		}
	case ownerExternalID != "":
		user, err := r.store.UserByExternalID(ctx, ownerExternalID)
		if err == nil {
			if organizationID == "" {
				organizationID = user.OrganizationID
			}
		} else if !errors.Is(err, directory.ErrNotFound) {
			return "", "", err
		}
	}

	if organizationID == "" {
		return "", "", fmt.Errorf("%w: organization undeterminable for record %s", ErrConfiguration, rec.ID)
	}
	return ownerExternalID, organizationID, nil
}

func (r *Resolver) resolvePublic(ctx context.Context, organizationID, module string, shareType directory.ShareType) (Result, error) {
	users, err := r.store.ActiveUsers(ctx, organizationID)
	if err != nil {
		return Result{}, err
	}
	memo := newAccessMemo(r.store, module)
	ids := make([]string, 0, len(users))
	for _, user := range users {
		granted, err := memo.allowed(ctx, user)
		if err != nil {
			return Result{}, err
		}
		if granted {
			ids = append(ids, user.ExternalID)
		}
	}
	return Result{
		UserIDs:       orderedUnique(ids),
		AccessType:    shareType,
		HierarchyUsed: false,
	}, nil
}

func (r *Resolver) resolvePrivate(ctx context.Context, organizationID, module, ownerExternalID string) (Result, error) {
	empty := Result{UserIDs: []string{}, AccessType: directory.SharePrivate}
	if ownerExternalID == "" {
		// Ownerless private record: nobody sees it. A state, not an error.
		return empty, nil
	}

	owner, err := r.store.UserByExternalID(ctx, ownerExternalID)
	if errors.Is(err, directory.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return Result{}, err
	}

	memo := newAccessMemo(r.store, module)
	ownerGranted, err := memo.allowed(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	if !ownerGranted {
		// The owner's own access caps everyone's: no access for the owner
		// means no access for anyone.
		return empty, nil
	}

	if owner.RoleID == "" {
		return Result{
			UserIDs:    []string{owner.ExternalID},
			AccessType: directory.SharePrivate,
		}, nil
	}

	nodes, err := r.hierarchy(ctx, organizationID)
	if err != nil {
		return Result{}, err
	}
	ownerNode, ok := nodes[owner.RoleID]
	if !ok {
		// Role assigned but not synced yet: fall back to the owner alone.
		return Result{
			UserIDs:    []string{owner.ExternalID},
			AccessType: directory.SharePrivate,
		}, nil
	}

	senior := make(map[string]struct{})
	for roleID, node := range nodes {
		if node.Level <= ownerNode.Level {
			senior[roleID] = struct{}{}
		}
	}

	users, err := r.store.ActiveUsers(ctx, organizationID)
	if err != nil {
		return Result{}, err
	}
	ids := []string{owner.ExternalID}
	for _, user := range users {
		if user.RoleID == "" {
			continue
		}
		if _, ok := senior[user.RoleID]; !ok {
			continue
		}
		granted, err := memo.allowed(ctx, user)
		if err != nil {
			return Result{}, err
		}
		if granted {
			ids = append(ids, user.ExternalID)
		}
	}

	return Result{
		UserIDs:       orderedUnique(ids),
		AccessType:    directory.SharePrivate,
		HierarchyUsed: true,
	}, nil
}

func (r *Resolver) hierarchy(ctx context.Context, organizationID string) (map[string]*HierarchyNode, error) {
	if r.cache != nil {
		if nodes, ok := r.cache.get(organizationID); ok {
			obs.HierarchyCacheHit()
			return nodes, nil
		}
		obs.HierarchyCacheMiss()
	}
	roles, err := r.store.Roles(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	nodes := BuildHierarchy(roles)
	r.cache.put(organizationID, nodes)
	return nodes, nil
}

func orderedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
