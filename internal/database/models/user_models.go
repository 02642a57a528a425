package models

import "time"

type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"`
	Firstname string     `gorm:"not null" json:"firstname"`
	Lastname  string     `gorm:"not null" json:"lastname"`
	RoleID    int32      `gorm:"not null" json:"role_id"`
	Role      Role       `gorm:"foreignKey:RoleID" json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt *time.Time `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
}

type Role struct {
	ID          int32      `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleName    string     `gorm:"uniqueIndex;not null" json:"role_name"`
	AccessLevel int32      `gorm:"not null" json:"access_level"`
	Permissions string     `gorm:"type:text" json:"permissions,omitempty"`
	CreatedAt   *time.Time `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
}

const (
	AccessViewer     int32 = 10
	AccessStaff      int32 = 50
	AccessTechnician int32 = 70
	AccessAdmin      int32 = 100
)
