package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutstandingToken records a refresh token issued at login, keyed by its
// short token identifier (jti) rather than the full token value.
type OutstandingToken struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	JTI       string    `gorm:"size:36;uniqueIndex;not null" json:"jti"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (t *OutstandingToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (OutstandingToken) TableName() string {
	return "outstanding_tokens"
}
