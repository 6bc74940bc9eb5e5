package model

import "time"

// Role is stored verbatim in users.role.
type Role string

const (
	RolePhotographer Role = "photographer"
	RoleCompany      Role = "company"
	RoleAdmin        Role = "admin"
	RoleSuperAdmin   Role = "super_admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RolePhotographer, RoleCompany, RoleAdmin, RoleSuperAdmin:
		return r, true
	}
	return "", false
}

// IsAdmin reports whether the role may use the admin surface.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RolePhotographer, RoleCompany:
		return false
	}
	return false
}

type User struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	DisplayName    string    `gorm:"size:64" json:"display_name"`
	Bio            string    `gorm:"type:text" json:"bio"`
	AvatarURL      string    `gorm:"size:512" json:"avatar_url"`
	Website        string    `gorm:"size:255" json:"website"`
	Location       string    `gorm:"size:128" json:"location"`
	Role           Role      `gorm:"size:16;not null;default:photographer" json:"role"`
	FollowerCount  int64     `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int64     `gorm:"not null;default:0" json:"following_count"`
	UploadCount    int64     `gorm:"not null;default:0" json:"upload_count"`
	ViewCount      int64     `gorm:"not null;default:0" json:"view_count"`
	DownloadCount  int64     `gorm:"not null;default:0" json:"download_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Session is a bearer token row; valid while ExpiresAt is in the future.
type Session struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"uniqueIndex;size:512;not null" json:"token"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
