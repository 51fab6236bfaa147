package middleware

import (
	"errors"
	"net/http"
	"strings"

	"geo_atlas_go/config"
	"geo_atlas_go/db"
	"geo_atlas_go/models"
	"geo_atlas_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// AccessCookieName is the cookie the access token is set into at login
	AccessCookieName = "jwt"
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeyClaims is the context key for the verified token claims
	ContextKeyClaims = "claims"
)

// genericAuthMessage is the only authentication failure detail a caller
// ever sees; the specific reason stays in the logs.
const genericAuthMessage = "authentication required"

// RequireAuth verifies the access token from the Authorization header or
// the session cookie, rejects revoked tokens, and loads the user into the
// request context.
func RequireAuth(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFromRequest(c)
			if token == "" {
				return unauthorized(c, "no token presented")
			}

			claims, err := services.ParseToken(cfg, token)
			if err != nil {
				return unauthorized(c, err.Error())
			}
			if claims.TokenType != services.TokenTypeAccess {
				return unauthorized(c, "token is not an access token")
			}

			// Revocation beats embedded expiry: a blacklisted identifier
			// never authenticates again
			revoked, err := services.IsTokenRevoked(db.DB, claims.ID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "authentication error")
			}
			if revoked {
				return unauthorized(c, "token has been revoked")
			}

			var user models.User
			if err := db.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return unauthorized(c, "token user no longer exists")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "authentication error")
			}
			if !user.IsActive {
				return unauthorized(c, "user is deactivated")
			}

			c.Set(ContextKeyUser, &user)
			c.Set(ContextKeyClaims, claims)
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetCurrentClaims retrieves the verified token claims from context
func GetCurrentClaims(c echo.Context) *services.Claims {
	claims, ok := c.Get(ContextKeyClaims).(*services.Claims)
	if !ok {
		return nil
	}
	return claims
}

// ClearAccessCookie clears the session cookie
func ClearAccessCookie(c echo.Context, cfg *config.Config) {
	cookie := &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
}

// SetAccessCookie sets the access token as a same-session cookie
func SetAccessCookie(c echo.Context, cfg *config.Config, token string) {
	cookie := &http.Cookie{
		Name:     AccessCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
}

func tokenFromRequest(c echo.Context) string {
	header := strings.TrimSpace(c.Request().Header.Get("Authorization"))
	if header != "" {
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return strings.TrimSpace(header[len("bearer "):])
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(c echo.Context, reason string) error {
	services.LogSecurityEvent("AUTH_REJECTED", "-", reason)
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": genericAuthMessage,
	})
}
