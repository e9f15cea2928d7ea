package domain

// Operation names an Account Service entry point for authorization purposes.
type Operation string

const (
	OpRegister     Operation = "register"
	OpLogin        Operation = "login"
	OpListUsers    Operation = "list_users"
	OpGetUser      Operation = "get_user"
	OpGetMyProfile Operation = "get_my_profile"
	OpUpdateUser   Operation = "update_user"
	OpDeleteUser   Operation = "delete_user"
)

// Predicate decides whether a principal may perform an operation.
type Predicate func(Principal) bool

func public(Principal) bool { return true }

func authenticated(p Principal) bool { return p.Email != "" && p.Role.Valid() }

func adminOnly(p Principal) bool { return authenticated(p) && p.Role == RoleAdmin }

// policy is the single table consulted by both the HTTP gate and the
// Account Service. Operations missing from it are denied.
var policy = map[Operation]Predicate{
	OpRegister:     public,
	OpLogin:        public,
	OpListUsers:    adminOnly,
	OpGetUser:      adminOnly,
	OpGetMyProfile: authenticated,
	OpUpdateUser:   adminOnly,
	OpDeleteUser:   adminOnly,
}

// Authorize returns ErrForbidden unless p satisfies the predicate for op.
func Authorize(op Operation, p Principal) error {
	allow, ok := policy[op]
	if !ok || !allow(p) {
		return ErrForbidden
	}
	return nil
}
