package model

import (
	"time"
)

// RoleAdmin is assigned to the member who creates a tenant.
const RoleAdmin = "admin"

// Profile binds a caller identity to at most one tenant with a role.
// The primary key is the opaque identity id supplied by the authentication
// provider, so the row doubles as the membership record: a null TenantID
// means the caller has no membership yet.
type Profile struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Email       *string   `json:"email,omitempty" gorm:"type:varchar(255)"`
	DisplayName *string   `json:"display_name" gorm:"type:varchar(100)"`
	Bio         *string   `json:"bio" gorm:"type:text"`
	AvatarURL   *string   `json:"avatar_url" gorm:"type:text"`
	TenantID    *string   `json:"tenant_id" gorm:"type:uuid;index"`
	Role        *string   `json:"role" gorm:"type:varchar(50)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
