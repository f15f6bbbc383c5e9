package models

import (
	"time"
)

type User struct {
	ID        string
	Email     string
	Name      string
	Picture   *string
	Roles     []Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole checks whether the user holds role
func (u *User) HasRole(role Role) bool {
	return HasAnyRole(u.Roles, role)
}
