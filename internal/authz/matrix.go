// Package authz holds the single permission matrix deciding which controls a
// role may use on each resource. Every call site goes through Can; there are
// no per-resource copies of the predicate.
package authz

// Resource identifies a capability-gated resource type. Settings is gated as
// a whole: any access requires the Admin role, there is no partial view.
type Resource string

const (
	ResourceOrder    Resource = "order"
	ResourceUser     Resource = "user"
	ResourceRider    Resource = "rider"
	ResourceSettings Resource = "settings"
)

// Action is a capability a role may hold on a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Roles recognised by the matrix. Anything else, including the empty string,
// falls through to the viewer row.
const (
	RoleAdmin  = "Admin"
	RoleEditor = "Editor"
)

type capabilities map[Action]bool

var (
	adminRow  = capabilities{ActionView: true, ActionEdit: true, ActionDelete: true}
	editorRow = capabilities{ActionView: true, ActionEdit: true}
	viewerRow = capabilities{ActionView: true}
)

// matrix is the literal policy table. Unknown roles are resolved to
// viewerRow by Can, so omitting a role here means read-only access.
var matrix = map[string]map[Resource]capabilities{
	RoleAdmin: {
		ResourceOrder:    adminRow,
		ResourceUser:     adminRow,
		ResourceRider:    adminRow,
		ResourceSettings: adminRow,
	},
	RoleEditor: {
		ResourceOrder: editorRow,
		ResourceUser:  editorRow,
		ResourceRider: editorRow,
	},
}

// Can reports whether role may perform action on resource. It is a total
// pure function: unknown roles, resources or actions yield false rather than
// an error, and the empty role never grants anything beyond viewing the
// three list resources.
func Can(role string, resource Resource, action Action) bool {
	row, ok := matrix[role]
	if !ok {
		row = map[Resource]capabilities{
			ResourceOrder: viewerRow,
			ResourceUser:  viewerRow,
			ResourceRider: viewerRow,
		}
	}
	return row[resource][action]
}
