package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role controls what a user may administer. Items themselves carry no
// per-role restrictions.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a staff account. Accounts are deactivated, never deleted, so
// historical references stay resolvable.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"size:16;default:user" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
