package models

import "time"

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"password_hash,omitempty"`
	Role             string    `json:"role"`
	Company          string    `json:"company,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	StripeCustomerID string    `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Public strips fields that must never leave the API.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func ValidRole(role string) bool {
	return role == RoleClient || role == RoleAdmin
}
