package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// City belongs to a State. City and phone codes are globally unique, and
// the population must exceed the adult male + female counts combined.
type City struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string  `gorm:"size:100;not null" json:"name"`
	CityCode     string  `gorm:"size:10;uniqueIndex;not null" json:"city_code"`
	PhoneCode    string  `gorm:"size:10;uniqueIndex;not null" json:"phone_code"`
	Population   int     `gorm:"not null" json:"population"`
	AvgAge       float64 `json:"avg_age"`
	AdultMales   int     `gorm:"not null" json:"adult_males"`
	AdultFemales int     `gorm:"not null" json:"adult_females"`

	StateID string `gorm:"type:uuid;not null;index" json:"state_id"`
	State   State  `gorm:"foreignKey:StateID" json:"-"`

	// Resolved from the parent state at read time, never stored.
	StateName string `gorm:"-" json:"state_name,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *City) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (City) TableName() string {
	return "cities"
}

// PaginationKey returns the keyset ordering pair for cursor pagination
func (c City) PaginationKey() (string, string) {
	return c.Name, c.ID
}
