package model

// Role decides which dashboard and which backend endpoints a user can reach.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMedico   Role = "medico"
	RolePaciente Role = "paciente"
)

// Roles lists every known role in login probing priority order.
var Roles = []Role{RoleAdmin, RoleMedico, RolePaciente}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMedico, RolePaciente:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// User is the profile persisted next to the token. Tipo is the role
// discriminator the backend reports on login.
type User struct {
	ID       int64  `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
	Tipo     Role   `json:"tipo"`
}

// Account is a backend-side user with credentials.
type Account struct {
	User
	PasswordHash string `json:"password_hash"`
}
