package models

import "time"

// Resource is the closed set of things a permission can be granted on.
type Resource string

const (
	ResourceUsers     Resource = "users"
	ResourceInventory Resource = "inventory"
	ResourceSales     Resource = "sales"
	ResourceClients   Resource = "clients"
	ResourceReports   Resource = "reports"
	ResourceRecipes   Resource = "recipes"
)

var Resources = []Resource{
	ResourceUsers,
	ResourceInventory,
	ResourceSales,
	ResourceClients,
	ResourceReports,
	ResourceRecipes,
}

func (r Resource) Valid() bool {
	for _, v := range Resources {
		if v == r {
			return true
		}
	}
	return false
}

func ParseResource(s string) (Resource, bool) {
	r := Resource(s)
	return r, r.Valid()
}

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var Actions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}

func ParseAction(s string) (Action, bool) {
	a := Action(s)
	return a, a.Valid()
}

// RolePermission: role-level grant. Presence of the row means allowed.
type RolePermission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Role      Role      `gorm:"size:20;not null;uniqueIndex:idx_role_perm" json:"role"`
	Resource  Resource  `gorm:"size:50;not null;uniqueIndex:idx_role_perm" json:"resource"`
	Action    Action    `gorm:"size:20;not null;uniqueIndex:idx_role_perm" json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPermission: per-user exception, wins over RolePermission for the same key.
type UserPermission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_perm" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Resource  Resource  `gorm:"size:50;not null;uniqueIndex:idx_user_perm" json:"resource"`
	Action    Action    `gorm:"size:20;not null;uniqueIndex:idx_user_perm" json:"action"`
	Allowed   bool      `gorm:"not null" json:"allowed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
