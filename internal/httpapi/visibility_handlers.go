package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"sharescope.org/internal/audit"
	"sharescope.org/internal/auth"
	"sharescope.org/internal/directory"
	"sharescope.org/internal/obs"
	"sharescope.org/internal/visibility"
)

type resolveResponse struct {
	Module   string `json:"module"`
	RecordID string `json:"record_id"`
	visibility.Result
}

type hierarchyEntry struct {
	RoleID    string `json:"role_id"`
	ReportsTo string `json:"reports_to,omitempty"`
	Level     int    `json:"level"`
}

type hierarchyResponse struct {
	OrganizationID string           `json:"organization_id"`
	Roles          []hierarchyEntry `json:"roles"`
}

// handleModuleScoped routes /v1/modules/{module}/records/{recordID}/visibility.
func (a *API) handleModuleScoped(w http.ResponseWriter, r *http.Request) {
	if a.resolver == nil {
		writeError(w, r, http.StatusServiceUnavailable, "visibility service unavailable")
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/modules/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[1] != "records" || parts[3] != "visibility" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureScope(w, r, auth.ScopeResolveVisibility) {
		return
	}
	a.resolveVisibility(w, r, parts[0], parts[2])
}

func (a *API) resolveVisibility(w http.ResponseWriter, r *http.Request, module, recordID string) {
	start := time.Now()
	result, err := a.resolver.Resolve(r.Context(), module, recordID)
	if err != nil {
		handleResolveError(w, r, err)
		return
	}
	obs.ObserveResolution(module, string(result.AccessType), time.Since(start))
	_ = audit.LogEvent(r.Context(), "visibility.resolve", map[string]any{
		"module":         module,
		"record_id":      recordID,
		"access_type":    string(result.AccessType),
		"user_count":     len(result.UserIDs),
		"hierarchy_used": result.HierarchyUsed,
	})
	writeJSON(w, http.StatusOK, resolveResponse{
		Module:   module,
		RecordID: recordID,
		Result:   result,
	})
}

// handleOrganizationScoped routes /v1/organizations/{orgID}/hierarchy.
func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, "directory unavailable")
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/organizations/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "hierarchy" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureScope(w, r, auth.ScopeReadDirectory) {
		return
	}
	a.organizationHierarchy(w, r, parts[0])
}

func (a *API) organizationHierarchy(w http.ResponseWriter, r *http.Request, organizationID string) {
	roles, err := a.store.Roles(r.Context(), organizationID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "hierarchy lookup failed")
		return
	}
	nodes := visibility.BuildHierarchy(roles)

	entries := make([]hierarchyEntry, 0, len(nodes))
	for _, node := range nodes {
		entries = append(entries, hierarchyEntry{
			RoleID:    node.RoleID,
			ReportsTo: node.ReportsTo,
			Level:     node.Level,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level < entries[j].Level
		}
		return entries[i].RoleID < entries[j].RoleID
	})

	writeJSON(w, http.StatusOK, hierarchyResponse{
		OrganizationID: organizationID,
		Roles:          entries,
	})
}

func handleResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, visibility.ErrRecordNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, visibility.ErrConfiguration):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "visibility resolution failed")
	}
}
