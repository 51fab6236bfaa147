package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Country is the root of the geographic hierarchy. Name, code and phone
// code are unique across all owners, not per owner.
type Country struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CountryCode string `gorm:"size:3;uniqueIndex;not null" json:"country_code"`
	CurrSymbol  string `gorm:"size:5" json:"curr_symbol"`
	PhoneCode   string `gorm:"size:10;uniqueIndex;not null" json:"phone_code"`

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   User   `gorm:"foreignKey:OwnerID" json:"-"`

	// OwnerName is resolved from the owning user at read time, never stored.
	OwnerName string `gorm:"-" json:"owner_name,omitempty"`

	// Relationships
	States []State `gorm:"foreignKey:CountryID" json:"states"`
}

// BeforeCreate hook to generate UUID
func (c *Country) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Country) TableName() string {
	return "countries"
}

// PaginationKey returns the keyset ordering pair for cursor pagination
func (c Country) PaginationKey() (string, string) {
	return c.Name, c.ID
}
