package domain

// Role controls what an authenticated user may do through the API.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleAuthor    Role = "author"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleAuthor:
		return true
	}
	return false
}

// User is the identity resolved from a bearer token. Token issuance lives
// outside this service; users are not persisted here.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}
