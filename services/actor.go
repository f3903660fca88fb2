package services

import "agent-portal/models"

// Actor is the authenticated caller a service operation runs on behalf of.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) Owns(ownerID string) bool {
	return a.IsAdmin() || a.UserID == ownerID
}
