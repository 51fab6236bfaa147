package services

import (
	"errors"
	"testing"
	"time"

	"geo_atlas_go/apperr"
	"geo_atlas_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenPairAndParse(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	access, err := ParseToken(cfg, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, access.UserID)
	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.NotEmpty(t, access.ID)

	refresh, err := ParseToken(cfg, pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)

	// The refresh identifier is recorded for later revocation
	var outstanding models.OutstandingToken
	require.NoError(t, gdb.Where("jti = ?", refresh.ID).First(&outstanding).Error)
	assert.Equal(t, user.ID, outstanding.UserID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)

	badCfg := testConfig()
	badCfg.JWTSecret = "some-other-secret-0123456789abcdef"
	_, err = ParseToken(badCfg, pair.Access)
	var authErr *apperr.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestParseTokenExpired(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)

	_, err = ParseToken(cfg, pair.Access)
	var authErr *apperr.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestParseTokenGarbage(t *testing.T) {
	cfg := testConfig()
	_, err := ParseToken(cfg, "not.a.token")
	var authErr *apperr.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestRevokeOutstandingToken(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	pair, err := IssueTokenPair(gdb, cfg, user)
	require.NoError(t, err)
	refresh, err := ParseToken(cfg, pair.Refresh)
	require.NoError(t, err)

	require.NoError(t, RevokeOutstandingToken(gdb, user.ID))

	revoked, err := IsTokenRevoked(gdb, refresh.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	// The outstanding record is consumed
	assert.Equal(t, int64(0), countRows(t, gdb, &models.OutstandingToken{}))

	// Nothing left to revoke
	err = RevokeOutstandingToken(gdb, user.ID)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestRevokeNewestOutstandingFirst(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "owner@example.com")

	older := &models.OutstandingToken{
		JTI: "older-jti", UserID: user.ID,
		IssuedAt: time.Now().Add(-time.Hour), ExpiresAt: time.Now().Add(23 * time.Hour),
	}
	newer := &models.OutstandingToken{
		JTI: "newer-jti", UserID: user.ID,
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, gdb.Create(older).Error)
	require.NoError(t, gdb.Create(newer).Error)

	require.NoError(t, RevokeOutstandingToken(gdb, user.ID))

	revoked, err := IsTokenRevoked(gdb, "newer-jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = IsTokenRevoked(gdb, "older-jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeOutstandingTokenIdempotentInsert(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "owner@example.com")

	// The identifier is already on the revocation list, as after a lost
	// race between two concurrent logouts of the same login.
	require.NoError(t, gdb.Create(&models.BlacklistedToken{
		TokenJTI: "shared-jti", UserID: user.ID,
		IssuedAt: time.Now(), BlacklistedAt: time.Now(),
	}).Error)
	require.NoError(t, gdb.Create(&models.OutstandingToken{
		JTI: "shared-jti", UserID: user.ID,
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour),
	}).Error)

	// The duplicate blacklist insert is a no-op, not an error
	require.NoError(t, RevokeOutstandingToken(gdb, user.ID))

	var count int64
	require.NoError(t, gdb.Model(&models.BlacklistedToken{}).Where("token_jti = ?", "shared-jti").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(0), countRows(t, gdb, &models.OutstandingToken{}))
}

func TestIsTokenRevokedUnknownJTI(t *testing.T) {
	gdb := setupTestDB(t)

	revoked, err := IsTokenRevoked(gdb, "never-issued")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCleanupExpiredTokens(t *testing.T) {
	gdb := setupTestDB(t)
	user := createTestUser(t, gdb, "owner@example.com")

	expired := &models.OutstandingToken{
		JTI: "expired-jti", UserID: user.ID,
		IssuedAt: time.Now().Add(-48 * time.Hour), ExpiresAt: time.Now().Add(-24 * time.Hour),
	}
	live := &models.OutstandingToken{
		JTI: "live-jti", UserID: user.ID,
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, gdb.Create(expired).Error)
	require.NoError(t, gdb.Create(live).Error)

	require.NoError(t, CleanupExpiredTokens(gdb))

	assert.Equal(t, int64(1), countRows(t, gdb, &models.OutstandingToken{}))
	var remaining models.OutstandingToken
	require.NoError(t, gdb.First(&remaining).Error)
	assert.Equal(t, "live-jti", remaining.JTI)
}
