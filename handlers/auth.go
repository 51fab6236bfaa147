package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"geo_atlas_go/apperr"
	"geo_atlas_go/config"
	"geo_atlas_go/db"
	"geo_atlas_go/middleware"
	"geo_atlas_go/models"
	"geo_atlas_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterHandler creates a new user account
// POST /api/register
func RegisterHandler(c echo.Context) error {
	req := new(registerRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "A valid email is required",
		})
	}
	if len(req.Password) < services.MinPasswordLength {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("Password must be at least %d characters", services.MinPasswordLength),
		})
	}

	hashedPassword, err := services.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to hash password",
		})
	}

	user := &models.User{
		Email:    req.Email,
		Password: hashedPassword,
		IsActive: true,
	}
	if err := db.DB.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return respondError(c, &apperr.ConflictError{Field: "email", Value: req.Email})
		}
		return respondError(c, apperr.StoreWrite(err))
	}

	services.LogSecurityEvent("USER_REGISTERED", user.ID, "Registered: "+user.Email)

	// Send welcome email asynchronously (non-blocking)
	cfg := c.Get("config").(*config.Config)
	services.SendEmailAsync(cfg, services.BuildWelcomeEmail(user.Email))

	return c.JSON(http.StatusCreated, user)
}

// LoginHandler authenticates a user and issues an access/refresh pair.
// The access token is also set as a same-session cookie.
// POST /api/login
func LoginHandler(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return respondError(c, apperr.Unauthenticated("email or password empty"))
	}

	var user models.User
	err := db.DB.Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		// Timing attack mitigation: verify against a real hash either way
		services.VerifyPassword(services.DummyHash, req.Password)
		services.LogSecurityEvent("LOGIN_FAILED", "-", "Unknown email: "+req.Email)
		return respondError(c, apperr.Unauthenticated("user not found"))
	}

	if !services.VerifyPassword(user.Password, req.Password) {
		services.LogSecurityEvent("LOGIN_FAILED", user.ID, "Incorrect password")
		return respondError(c, apperr.Unauthenticated("incorrect password"))
	}

	if !user.IsActive {
		services.LogSecurityEvent("LOGIN_FAILED", user.ID, "Deactivated account")
		return respondError(c, apperr.Unauthenticated("user deactivated"))
	}

	cfg := c.Get("config").(*config.Config)
	pair, err := services.IssueTokenPair(db.DB, cfg, &user)
	if err != nil {
		return respondError(c, err)
	}

	middleware.SetAccessCookie(c, cfg, pair.Access)
	return c.JSON(http.StatusOK, pair)
}

// LogoutHandler revokes the caller's outstanding refresh token and clears
// the session cookie. A second logout for the same login finds nothing
// outstanding and reports not-found.
// GET /api/logout
func LogoutHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	cfg := c.Get("config").(*config.Config)

	if err := services.RevokeOutstandingToken(db.DB, user.ID); err != nil {
		return respondError(c, err)
	}

	services.LogSecurityEvent("LOGOUT", user.ID, "Refresh token revoked")
	middleware.ClearAccessCookie(c, cfg)
	return c.JSON(http.StatusOK, map[string]string{
		"message": "success",
	})
}

// HomeHandler greets the authenticated caller (smoke endpoint)
// GET /app/
func HomeHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Hello, %s!", user.Email),
	})
}
