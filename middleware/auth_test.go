package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"geo_atlas_go/config"
	"geo_atlas_go/db"
	"geo_atlas_go/models"
	"geo_atlas_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
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
	}
}

func createTestUser(t *testing.T, gdb *gorm.DB, email string) *models.User {
	hash, err := services.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{Email: email, Password: hash, IsActive: true}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

// protectedProbe runs a request through RequireAuth into a handler that
// echoes the authenticated user's email.
func protectedProbe(cfg *config.Config, decorate func(*http.Request)) *httptest.ResponseRecorder {
	e := echo.New()
	handler := RequireAuth(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, GetCurrentUser(c).Email)
	})

	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = handler(c)
	return rec
}

func TestRequireAuthBearerHeader(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := services.IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)

	rec := protectedProbe(cfg, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+pair.Access)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner@example.com", rec.Body.String())
}

func TestRequireAuthCookie(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := services.IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)

	rec := protectedProbe(cfg, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: pair.Access})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthNoToken(t *testing.T) {
	setupTestDB(t)
	cfg := testConfig()

	rec := protectedProbe(cfg, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}

func TestRequireAuthGarbageToken(t *testing.T) {
	setupTestDB(t)
	cfg := testConfig()

	rec := protectedProbe(cfg, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not.a.token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := services.IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)

	// A refresh token is never accepted on protected routes
	rec := protectedProbe(cfg, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+pair.Refresh)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRevokedToken(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := services.IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)
	claims, err := services.ParseToken(cfg, pair.Access)
	require.NoError(t, err)

	// Blacklist the access token's identifier directly
	require.NoError(t, gdb.Create(&models.BlacklistedToken{
		TokenJTI: claims.ID, UserID: user.ID,
		IssuedAt: time.Now(), BlacklistedAt: time.Now(),
	}).Error)

	rec := protectedProbe(cfg, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+pair.Access)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthDeactivatedUser(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := services.IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, gdb.Save(user).Error)

	rec := protectedProbe(cfg, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+pair.Access)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
