package services

import (
	"errors"
	"fmt"
	"time"

	"geo_atlas_go/apperr"
	"geo_atlas_go/config"
	"geo_atlas_go/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// TokenTypeAccess marks short-lived tokens used on every request
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks tokens recorded as outstanding at login
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims carried by both token types
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what login returns to the client
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func signToken(cfg *config.Config, userID, tokenType string, ttl time.Duration) (token string, jti string, expiresAt time.Time, err error) {
	now := time.Now()
	jti = uuid.New().String()
	expiresAt = now.Add(ttl)

	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return token, jti, expiresAt, nil
}

// IssueTokenPair signs an access and a refresh token for the user and
// records the refresh token as outstanding so logout can revoke it later.
func IssueTokenPair(gdb *gorm.DB, cfg *config.Config, user *models.User) (*TokenPair, error) {
	access, _, _, err := signToken(cfg, user.ID, TokenTypeAccess, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refresh, refreshJTI, refreshExp, err := signToken(cfg, user.ID, TokenTypeRefresh, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	outstanding := &models.OutstandingToken{
		JTI:       refreshJTI,
		UserID:    user.ID,
		IssuedAt:  time.Now(),
		ExpiresAt: refreshExp,
	}
	if err := gdb.Create(outstanding).Error; err != nil {
		return nil, apperr.StoreWrite(err)
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseToken verifies signature and expiry and returns the claims. Any
// failure is an authentication error; the caller-facing message stays
// generic.
func ParseToken(cfg *config.Config, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, apperr.Unauthenticated(fmt.Sprintf("token parse failed: %v", err))
	}
	if !parsed.Valid {
		return nil, apperr.Unauthenticated("token invalid")
	}
	return claims, nil
}

// IsTokenRevoked reports whether the token identifier is on the
// revocation list.
func IsTokenRevoked(gdb *gorm.DB, jti string) (bool, error) {
	var count int64
	if err := gdb.Model(&models.BlacklistedToken{}).Where("token_jti = ?", jti).Count(&count).Error; err != nil {
		return false, apperr.StoreRead(err)
	}
	return count > 0, nil
}

// RevokeOutstandingToken moves the user's newest outstanding refresh token
// onto the revocation list. The blacklist insert is idempotent under
// concurrent logouts; a user with nothing outstanding gets a not-found.
func RevokeOutstandingToken(gdb *gorm.DB, userID string) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		var outstanding models.OutstandingToken
		err := tx.Where("user_id = ?", userID).Order("issued_at DESC").First(&outstanding).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.NotFoundError{Resource: "outstanding token"}
			}
			return apperr.StoreRead(err)
		}

		entry := &models.BlacklistedToken{
			TokenJTI:      outstanding.JTI,
			UserID:        outstanding.UserID,
			IssuedAt:      outstanding.IssuedAt,
			BlacklistedAt: time.Now(),
		}
		// Duplicate revocation of the same identifier is a no-op, not an error
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_jti"}},
			DoNothing: true,
		}).Create(entry).Error; err != nil {
			return apperr.StoreWrite(err)
		}

		if err := tx.Delete(&outstanding).Error; err != nil {
			return apperr.StoreWrite(err)
		}
		return nil
	})
}

// CleanupExpiredTokens removes expired outstanding records. Blacklist rows
// are kept: a revoked identifier stays revoked.
func CleanupExpiredTokens(gdb *gorm.DB) error {
	result := gdb.Where("expires_at < ?", time.Now()).Delete(&models.OutstandingToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		fmt.Printf("Cleaned up %d expired outstanding tokens\n", result.RowsAffected)
	}
	return nil
}
