package access

// Role is a strict total order of privilege. Every broader role sees a
// superset of what any narrower role sees from the same position in the
// department tree.
type Role string

const (
	RoleRootAdmin Role = "ROOT_ADMIN"
	RoleOrgAdmin  Role = "ORG_ADMIN"
	RoleUnitAdmin Role = "UNIT_ADMIN"
	RoleMember    Role = "MEMBER"
)

var roleRanks = map[Role]int{
	RoleRootAdmin: 4,
	RoleOrgAdmin:  3,
	RoleUnitAdmin: 2,
	RoleMember:    1,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the privilege rank; unknown roles rank below MEMBER.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

// ValidRoles lists the accepted role names, broadest first.
func ValidRoles() []Role {
	return []Role{RoleRootAdmin, RoleOrgAdmin, RoleUnitAdmin, RoleMember}
}

// Scope is the requester's position for visibility computations: who they
// are, what role they hold, and which department they sit in (nil when
// unassigned).
type Scope struct {
	UserID       int64
	Role         Role
	DepartmentID *int64
}
