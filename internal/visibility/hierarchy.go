package visibility

import "sharescope.org/internal/directory"

// HierarchyNode is one role in the built forest. Level is the distance from
// the nearest root; 0 means root or unreachable.
type HierarchyNode struct {
	RoleID    string   `json:"role_id"`
	ReportsTo string   `json:"reports_to,omitempty"`
	Level     int      `json:"level"`
	Children  []string `json:"children,omitempty"`
}

type hierarchyQueueItem struct {
	roleID string
	level  int
}

// BuildHierarchy turns a flat role list into a forest keyed by role id and
// assigns each role a depth level by breadth-first traversal from the roots.
//
// Malformed data degrades instead of failing: a reports_to pointing outside
// the input set makes the role a root, and a role whose ancestor chain cycles
// keeps level 0 without being dropped. Every input role appears exactly once
// in the output.
func BuildHierarchy(roles []directory.Role) map[string]*HierarchyNode {
	nodes := make(map[string]*HierarchyNode, len(roles))
	for _, role := range roles {
		nodes[role.ID] = &HierarchyNode{
			RoleID:    role.ID,
			ReportsTo: role.ReportsTo,
		}
	}

	for _, role := range roles {
		if role.ReportsTo == "" {
			continue
		}
		parent, ok := nodes[role.ReportsTo]
		if !ok {
			// Dangling parent reference: the role is seeded as a root below.
			continue
		}
		parent.Children = append(parent.Children, role.ID)
	}

	var queue []hierarchyQueueItem
	for _, role := range roles {
		_, parentPresent := nodes[role.ReportsTo]
		if role.ReportsTo == "" || !parentPresent {
			queue = append(queue, hierarchyQueueItem{roleID: role.ID})
		}
	}

	// The visited set guards against a role reachable through more than one
	// parent and against cycles; traversal is O(roles) either way.
	visited := make(map[string]struct{}, len(roles))
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if _, seen := visited[item.roleID]; seen {
			continue
		}
		visited[item.roleID] = struct{}{}
		node := nodes[item.roleID]
		node.Level = item.level
		for _, child := range node.Children {
			queue = append(queue, hierarchyQueueItem{roleID: child, level: item.level + 1})
		}
	}

	return nodes
}
