package models

// Caller roles carried by the auth middlewares
const (
	RoleAdmin = "admin" // may delete archived compositions
	RoleUser  = "user"
)

// IsAdmin reports whether role grants archive administration
func IsAdmin(role string) bool {
	return role == RoleAdmin
}
