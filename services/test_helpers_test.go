package services

import (
	"testing"
	"time"

	"geo_atlas_go/config"
	"geo_atlas_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Country{},
		&models.State{},
		&models.City{},
		&models.OutstandingToken{},
		&models.BlacklistedToken{},
	)
	require.NoError(t, err)

	return testDB
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		JWTSecret:       "test-secret-0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		PageSize:        5,
		EmailTestMode:   true,
	}
}

func createTestUser(t *testing.T, gdb *gorm.DB, email string) *models.User {
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Password: hash,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

// indiaTree is the canonical nested payload used across tests
func indiaTree() CountryInput {
	return CountryInput{
		Name:        "India",
		CountryCode: "IN",
		CurrSymbol:  "₹",
		PhoneCode:   "+91",
		States: []StateInput{
			{
				Name:      "Gujarat",
				StateCode: "GJ",
				GSTCode:   "24GUJGST",
				Cities: []CityInput{
					{
						Name:         "Surat",
						CityCode:     "SUR",
						PhoneCode:    "+91-261",
						Population:   5000001,
						AvgAge:       29.5,
						AdultMales:   2500000,
						AdultFemales: 2500000,
					},
				},
			},
		},
	}
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}) int64 {
	var count int64
	require.NoError(t, gdb.Model(model).Count(&count).Error)
	return count
}
