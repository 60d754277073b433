package services

import (
	"time"

	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/security"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenTTL = 24 * time.Hour

// AuthService handles admin authentication and JWT operations
type AuthService struct {
	passwordHash string
	jwtSecret    string
	logger       *logging.ChanneledLogger
}

// NewAuthService creates a new authentication service. An empty password hash
// disables admin login.
func NewAuthService(passwordHash, jwtSecret string, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		logger:       logger,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token,omitempty"`
	Role    string `json:"role,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AuthenticateAdmin validates the admin password and generates a JWT
func (a *AuthService) AuthenticateAdmin(password string) *AuthResult {
	if a.passwordHash == "" {
		a.logger.Auth().Warn("Admin login attempted but ADMIN_PASSWORD_HASH is not set")
		return &AuthResult{Success: false, Error: "Admin login disabled"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)); err != nil {
		a.logger.Auth().Warn("Admin login rejected")
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	token, err := security.GenerateAdminToken(a.jwtSecret, adminTokenTTL)
	if err != nil {
		a.logger.Auth().Error("Admin token generation failed", "error", err.Error())
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	a.logger.Auth().Info("Admin login succeeded")
	return &AuthResult{Token: token, Role: "admin", Success: true}
}

// ValidateAdminToken reports whether token grants admin access
func (a *AuthService) ValidateAdminToken(token string) bool {
	return token != "" && security.IsAdminToken(token, a.jwtSecret)
}
