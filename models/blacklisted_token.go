package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlacklistedToken is the durable revocation set. Once a token identifier
// is present here it never authenticates again, even before its expiry.
type BlacklistedToken struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TokenJTI      string    `gorm:"size:36;uniqueIndex;not null" json:"token_jti"`
	UserID        string    `gorm:"type:uuid;not null;index" json:"user_id"`
	IssuedAt      time.Time `gorm:"not null" json:"issued_at"`
	BlacklistedAt time.Time `gorm:"not null" json:"blacklisted_at"`
}

// BeforeCreate hook to generate UUID
func (t *BlacklistedToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (BlacklistedToken) TableName() string {
	return "blacklisted_tokens"
}
