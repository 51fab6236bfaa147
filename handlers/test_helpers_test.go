package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"geo_atlas_go/config"
	"geo_atlas_go/db"
	"geo_atlas_go/models"
	"geo_atlas_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB wires a fresh in-memory database into the package-global
// handle the handlers read from.
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

	db.DB = testDB
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
	hash, err := services.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Password: hash,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

// newContext builds an echo context for a direct handler call, with the
// config and (optionally) the authenticated user preloaded the way the
// middleware would set them.
func newContext(t *testing.T, cfg *config.Config, user *models.User, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("config", cfg)
	if user != nil {
		c.Set("user", user)
	}
	return c, rec
}
