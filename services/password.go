package services

import (
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// MinPasswordLength is the minimum accepted password length at registration
	MinPasswordLength = 5
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// DummyHash is a real bcrypt hash generated at startup. Login verifies
// against it when no user matches the email so the request takes the same
// time either way.
var DummyHash string

func init() {
	hash, err := HashPassword("dummy_password_for_timing_mitigation")
	if err != nil {
		log.Printf("[WARNING] Failed to generate dummy hash: %v", err)
		return
	}
	DummyHash = hash
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(eventType, userID, details string) {
	log.Printf("[SECURITY] %s | User: %s | Details: %s", eventType, userID, details)
}
