package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleVisitor Role = "visitor"
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleVisitor || r == RoleOwner || r == RoleAdmin
}

// Caller is the already-resolved identity a request acts under. The engine
// trusts it and does not re-authenticate.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

// CanModerate reports whether the caller may moderate content owned by
// ownerID (the owner themselves, or any admin).
func (c Caller) CanModerate(ownerID uuid.UUID) bool {
	return c.Role == RoleAdmin || (c.Role == RoleOwner && c.ID == ownerID)
}

// User represents a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
