package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// State belongs to a Country. The GST code is globally unique; the name is
// unique within its country.
type State struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string `gorm:"size:100;not null;uniqueIndex:idx_state_country_name" json:"name"`
	StateCode string `gorm:"size:10;not null" json:"state_code"`
	GSTCode   string `gorm:"size:15;uniqueIndex;not null" json:"gst_code"`

	CountryID string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_state_country_name" json:"country_id"`
	Country   Country `gorm:"foreignKey:CountryID" json:"-"`

	// Resolved from the parent country at read time, never stored.
	CountryName string `gorm:"-" json:"country_name,omitempty"`
	OwnerName   string `gorm:"-" json:"owner_name,omitempty"`

	// Relationships
	Cities []City `gorm:"foreignKey:StateID" json:"cities"`
}

// BeforeCreate hook to generate UUID
func (s *State) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (State) TableName() string {
	return "states"
}

// PaginationKey returns the keyset ordering pair for cursor pagination
func (s State) PaginationKey() (string, string) {
	return s.Name, s.ID
}
