// Package auth implements the shared-password gates in front of the admin
// and department panels.
//
// There are no user accounts. One username/password pair unlocks the admin
// panel; an optional per-department password unlocks the department panel.
// Configured passwords may be plain text or bcrypt hashes ($2a$, $2b$, $2y$).
package auth

import (
	"crypto/subtle"
	"strings"

	apperrors "peopleconnect/internal/errors"
	"peopleconnect/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Locale keys returned in AuthError.
const (
	KeyWrongPassword   = "wrong_pw"
	KeyTooManyAttempts = "too_many_attempts"
)

// Settings configures a Gate.
type Settings struct {
	Username          string
	Password          string
	DeptPasswords     map[string]string
	RestrictAll       bool
	AttemptsPerMinute int
}

// Gate checks credentials for both panels.
type Gate struct {
	username      string
	password      string
	deptPasswords map[string]string
	restrictAll   bool
	throttle      *Throttle
	logger        *zap.Logger
}

// NewGate creates a gate from settings.
func NewGate(s Settings, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	depts := make(map[string]string, len(s.DeptPasswords))
	for k, v := range s.DeptPasswords {
		depts[k] = v
	}
	return &Gate{
		username:      s.Username,
		password:      s.Password,
		deptPasswords: depts,
		restrictAll:   s.RestrictAll,
		throttle:      NewThrottle(s.AttemptsPerMinute),
		logger:        logger,
	}
}

// RestrictAll reports whether every view requires the admin login.
func (g *Gate) RestrictAll() bool {
	return g.restrictAll
}

// DepartmentsLocked reports whether department passwords are configured.
// When none are, the department panel is open to everyone.
func (g *Gate) DepartmentsLocked() bool {
	return len(g.deptPasswords) > 0
}

// Login checks the admin username and password.
//
// Parameters:
//   - clientKey: throttle key, normally the client IP
//   - username, password: submitted credentials
//
// Returns:
//   - error: *errors.AuthError with key wrong_pw or too_many_attempts
func (g *Gate) Login(clientKey, username, password string) error {
	if !g.throttle.Allow(clientKey) {
		g.logger.Warn("🚫 Login throttled", zap.String("client", clientKey))
		return apperrors.NewAuthError(KeyTooManyAttempts, "admin login throttled")
	}

	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(g.username)) == 1
	passOK := checkPassword(g.password, password)
	if !userOK || !passOK {
		metrics.RecordLoginFailure("admin")
		g.logger.Warn("🔒 Admin login failed", zap.String("client", clientKey))
		return apperrors.NewAuthError(KeyWrongPassword, "admin credentials mismatch")
	}

	g.logger.Info("🔓 Admin login", zap.String("client", clientKey))
	return nil
}

// UnlockDepartment checks the password for department dept.
// A department with no configured password cannot be unlocked while any
// department passwords exist.
func (g *Gate) UnlockDepartment(clientKey, dept, password string) error {
	if !g.throttle.Allow(clientKey) {
		g.logger.Warn("🚫 Department unlock throttled", zap.String("client", clientKey))
		return apperrors.NewAuthError(KeyTooManyAttempts, "department unlock throttled")
	}

	configured, ok := g.deptPasswords[dept]
	if !ok || !checkPassword(configured, password) {
		metrics.RecordLoginFailure("department")
		g.logger.Warn("🔒 Department unlock failed", zap.String("client", clientKey), zap.String("department", dept))
		return apperrors.NewAuthError(KeyWrongPassword, "department password mismatch")
	}

	g.logger.Info("🔓 Department unlocked", zap.String("client", clientKey), zap.String("department", dept))
	return nil
}

func checkPassword(configured, given string) bool {
	if configured == "" {
		return false
	}
	if isBcrypt(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
