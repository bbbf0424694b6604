package domain

// User is a registered storefront account.
// Corresponds to users table in PostgreSQL.
type User struct {
	ID       string `json:"id"`       // random UUID
	Username string `json:"username"` // unique
	Password string `json:"-"`        // never serialized
}

// NewUser is the insert shape for users.
type NewUser struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
