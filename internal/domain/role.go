package domain

// Role is a named access level. Roles form a strict hierarchy; permissions
// are resolved through a fixed table initialized at process start.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// roleLevels orders roles for AtLeast comparisons. Higher value wins.
var roleLevels = map[Role]int{
	RoleCustomer: 1,
	RoleStaff:    2,
	RoleAdmin:    3,
}

// Permission names an allowed operation as resource:action.
type Permission string

const (
	PermUserView   Permission = "user:view"
	PermUserCreate Permission = "user:create"
	PermUserEdit   Permission = "user:edit"
	PermUserDelete Permission = "user:delete"

	PermProductView   Permission = "product:view"
	PermProductCreate Permission = "product:create"
	PermProductEdit   Permission = "product:edit"
	PermProductDelete Permission = "product:delete"

	PermCategoryView   Permission = "category:view"
	PermCategoryCreate Permission = "category:create"
	PermCategoryEdit   Permission = "category:edit"
	PermCategoryDelete Permission = "category:delete"

	PermReviewView     Permission = "review:view"
	PermReviewModerate Permission = "review:moderate"
	PermReviewDelete   Permission = "review:delete"

	PermContentView   Permission = "content:view"
	PermContentCreate Permission = "content:create"
	PermContentEdit   Permission = "content:edit"
	PermContentDelete Permission = "content:delete"

	PermArticleView    Permission = "article:view"
	PermArticleCreate  Permission = "article:create"
	PermArticleEdit    Permission = "article:edit"
	PermArticleDelete  Permission = "article:delete"
	PermArticlePublish Permission = "article:publish"

	PermMediaView   Permission = "media:view"
	PermMediaUpload Permission = "media:upload"
	PermMediaDelete Permission = "media:delete"

	PermNewsletterView Permission = "newsletter:view"
	PermNewsletterSend Permission = "newsletter:send"

	PermAnalyticsView Permission = "analytics:view"

	PermSettingsView Permission = "settings:view"
	PermSettingsEdit Permission = "settings:edit"

	PermSystemAdmin Permission = "system:admin"
)

// allPermissions is the full permission set; admin holds every entry.
var allPermissions = []Permission{
	PermUserView, PermUserCreate, PermUserEdit, PermUserDelete,
	PermProductView, PermProductCreate, PermProductEdit, PermProductDelete,
	PermCategoryView, PermCategoryCreate, PermCategoryEdit, PermCategoryDelete,
	PermReviewView, PermReviewModerate, PermReviewDelete,
	PermContentView, PermContentCreate, PermContentEdit, PermContentDelete,
	PermArticleView, PermArticleCreate, PermArticleEdit, PermArticleDelete, PermArticlePublish,
	PermMediaView, PermMediaUpload, PermMediaDelete,
	PermNewsletterView, PermNewsletterSend,
	PermAnalyticsView,
	PermSettingsView, PermSettingsEdit,
	PermSystemAdmin,
}

// rolePermissions maps each role to its granted permission set.
var rolePermissions = map[Role]map[Permission]struct{}{}

func init() {
	grant := func(role Role, perms ...Permission) {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		rolePermissions[role] = set
	}

	grant(RoleAdmin, allPermissions...)

	grant(RoleStaff,
		PermUserView,
		PermProductView, PermProductCreate, PermProductEdit,
		PermCategoryView, PermCategoryCreate, PermCategoryEdit,
		PermReviewView, PermReviewModerate,
		PermContentView, PermContentCreate, PermContentEdit,
		PermArticleView, PermArticleCreate, PermArticleEdit,
		PermMediaView, PermMediaUpload,
		PermNewsletterView,
		PermAnalyticsView,
	)

	grant(RoleCustomer,
		PermProductView,
		PermReviewView,
	)
}

// IsValidRole reports whether r names a known role.
func IsValidRole(r Role) bool {
	_, ok := roleLevels[r]
	return ok
}

// ValidRoles returns the known roles ordered from lowest to highest level.
func ValidRoles() []Role {
	return []Role{RoleCustomer, RoleStaff, RoleAdmin}
}

// HasPermission reports whether the role grants the given permission.
// Unknown roles grant nothing.
func (r Role) HasPermission(p Permission) bool {
	set, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, ok = set[p]
	return ok
}

// HasAllPermissions reports whether the role grants every listed permission.
// An empty list is trivially satisfied.
func (r Role) HasAllPermissions(perms ...Permission) bool {
	for _, p := range perms {
		if !r.HasPermission(p) {
			return false
		}
	}
	return true
}

// AtLeast reports whether the role sits at or above the given role in the
// hierarchy. Unknown roles are below everything.
func (r Role) AtLeast(min Role) bool {
	rl, ok := roleLevels[r]
	if !ok {
		return false
	}
	ml, ok := roleLevels[min]
	if !ok {
		return false
	}
	return rl >= ml
}

// Permissions returns the role's granted permissions. The returned slice is
// a copy; callers may not mutate the registry.
func (r Role) Permissions() []Permission {
	set, ok := rolePermissions[r]
	if !ok {
		return nil
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}
