// Package config provides configuration management for the People Connect service.
//
// This package handles loading configuration from environment variables,
// validating required settings, and providing sensible defaults for optional
// parameters. Configuration is loaded once at startup and remains immutable
// during runtime.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. External .env file in the working directory
//  3. Secrets file (YAML, credentials and department settings only)
//  4. Embedded defaults.env (included in binary)
//  5. Hard-coded defaults (lowest priority)
package config

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// embeddedEnv contains defaults.env embedded at build time.
//
// It carries only non-secret runtime settings; credentials have hard-coded
// fallbacks below and are expected to come from the environment or the
// secrets file in production.
//
//go:embed defaults.env
var embeddedEnv string

// PDF engines understood by the document generator.
const (
	PDFEngineFPDF   = "fpdf"
	PDFEngineChrome = "chrome"
)

// DefaultDepartments seeds every session's department list when neither the
// environment nor the secrets file provides one.
var DefaultDepartments = []string{"Municipal", "Health", "Education", "Electricity", "Water", "Roads", "Other"}

// Config holds all application configuration.
type Config struct {
	// Branding
	AppTitle     string
	FooterCredit string

	// HTTP server
	Port            string
	ShutdownTimeout time.Duration

	// Persistence
	DBPath    string // SQLite data file
	UploadDir string // attachment directory

	// Departments and access gate
	Departments   []string          // defaults for each session's department list
	AuthUsername  string            // global credential pair
	AuthPassword  string            // plaintext or bcrypt hash
	DeptPasswords map[string]string // optional per-department passwords
	RestrictAll   bool              // gate public tabs too

	// Take client addresses from forwarding headers (behind a reverse proxy)
	TrustProxyHeaders bool

	// Sessions
	SessionTTL    time.Duration
	SessionSecret string

	// Read cache validity window
	CacheTTL time.Duration

	// Upload limits
	MaxAttachments           int
	MaxUploadBytes           int64
	PurgeAttachmentsOnDelete bool

	// Login throttling per client address
	LoginAttemptsPerMinute int

	// Document generator
	PDFEngine   string
	PDFFontPath string

	// Telegram (optional)
	TelegramBotToken string
	TelegramChatID   string
	TelegramActions  bool // handle inline status buttons

	// Google Cloud Translation (optional)
	TranslateEnabled      bool
	GoogleCredentialsFile string

	DebugMode bool
}

// Secrets mirrors the optional YAML secrets file.
//
// Example:
//
//	auth_username: admin
//	auth_password: "$2a$10$..."
//	restrict_all: false
//	departments: [Municipal, Health, Roads]
//	dept_passwords:
//	  Roads: asphalt
type Secrets struct {
	AuthUsername     string            `yaml:"auth_username"`
	AuthPassword     string            `yaml:"auth_password"`
	RestrictAll      *bool             `yaml:"restrict_all"`
	Departments      []string          `yaml:"departments"`
	DeptPasswords    map[string]string `yaml:"dept_passwords"`
	SessionSecret    string            `yaml:"session_secret"`
	TelegramBotToken string            `yaml:"telegram_bot_token"`
	TelegramChatID   string            `yaml:"telegram_chat_id"`
}

// LoadConfig loads configuration from all sources and validates it.
//
// Loading process:
//  1. Load external .env (never overrides variables that are already set)
//  2. Apply embedded defaults.env to variables that are still unset
//  3. Read the secrets file named by SECRETS_FILE (default secrets.yaml)
//  4. Build the config, falling back to secrets and then hard-coded defaults
//  5. Validate
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	envMap, err := godotenv.Unmarshal(embeddedEnv)
	if err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	secrets, err := LoadSecrets(getEnvOrDefault("SECRETS_FILE", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	restrictDefault := false
	if secrets.RestrictAll != nil {
		restrictDefault = *secrets.RestrictAll
	}

	departments := DefaultDepartments
	if len(secrets.Departments) > 0 {
		departments = secrets.Departments
	}

	deptPasswords := secrets.DeptPasswords
	if raw := os.Getenv("DEPT_PASSWORDS"); raw != "" {
		deptPasswords = parsePasswordMap(raw)
	}
	if deptPasswords == nil {
		deptPasswords = map[string]string{}
	}

	cfg := &Config{
		AppTitle:     getEnvOrDefault("APP_TITLE", "People Connect – Citizen Submissions"),
		FooterCredit: getEnvOrDefault("FOOTER_CREDIT", ""),

		Port:            getEnvOrDefault("PORT", "8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DBPath:    getEnvOrDefault("DB_PATH", "submissions.db"),
		UploadDir: getEnvOrDefault("UPLOAD_DIR", "uploads"),

		Departments:   getEnvList("DEPARTMENTS", departments),
		AuthUsername:  getEnvOrDefault("AUTH_USERNAME", firstNonEmpty(secrets.AuthUsername, "shvan")),
		AuthPassword:  getEnvOrDefault("AUTH_PASSWORD", firstNonEmpty(secrets.AuthPassword, "shvan")),
		DeptPasswords: deptPasswords,
		RestrictAll:   getEnvBool("RESTRICT_ALL", restrictDefault),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionSecret: getEnvOrDefault("SESSION_SECRET", secrets.SessionSecret),

		CacheTTL: getEnvDuration("CACHE_TTL", 10*time.Second),

		MaxAttachments:           getEnvInt("MAX_ATTACHMENTS", 3),
		MaxUploadBytes:           int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		PurgeAttachmentsOnDelete: getEnvBool("PURGE_ATTACHMENTS_ON_DELETE", false),

		LoginAttemptsPerMinute: getEnvInt("LOGIN_ATTEMPTS_PER_MINUTE", 10),

		PDFEngine:   strings.ToLower(getEnvOrDefault("PDF_ENGINE", PDFEngineFPDF)),
		PDFFontPath: os.Getenv("PDF_FONT_PATH"),

		TelegramBotToken: getEnvOrDefault("TELEGRAM_BOT_TOKEN", secrets.TelegramBotToken),
		TelegramChatID:   getEnvOrDefault("TELEGRAM_CHAT_ID", secrets.TelegramChatID),
		TelegramActions:  getEnvBool("TELEGRAM_ACTIONS", false),

		TranslateEnabled:      getEnvBool("TRANSLATE_ENABLED", false),
		GoogleCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),

		DebugMode: getEnvBool("DEBUG_MODE", false),
	}

	// Sessions never survive a restart, so a random key is fine when none is set
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = randomSecret()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadSecrets reads the YAML secrets file. A missing file yields empty secrets.
func LoadSecrets(path string) (Secrets, error) {
	var s Secrets
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read secrets file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse secrets file %s: %w", path, err)
	}
	return s, nil
}

// Validate checks that required configuration is present and values are sensible.
func (c *Config) Validate() error {
	if c.AuthUsername == "" {
		return fmt.Errorf("AUTH_USERNAME is required")
	}
	if c.AuthPassword == "" {
		return fmt.Errorf("AUTH_PASSWORD is required")
	}
	if len(c.Departments) == 0 {
		return fmt.Errorf("DEPARTMENTS must list at least one department")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR cannot be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.CacheTTL)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", c.SessionTTL)
	}
	if c.MaxAttachments < 1 {
		return fmt.Errorf("MAX_ATTACHMENTS must be at least 1, got %d", c.MaxAttachments)
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1, got %d", c.MaxUploadBytes)
	}
	if c.LoginAttemptsPerMinute < 1 {
		return fmt.Errorf("LOGIN_ATTEMPTS_PER_MINUTE must be at least 1, got %d", c.LoginAttemptsPerMinute)
	}
	if c.PDFEngine != PDFEngineFPDF && c.PDFEngine != PDFEngineChrome {
		return fmt.Errorf("PDF_ENGINE must be %q or %q, got %q", PDFEngineFPDF, PDFEngineChrome, c.PDFEngine)
	}
	return nil
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// Helper functions for environment variable parsing

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an integer or a default if not set/invalid
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool accepts anything strconv.ParseBool does ("1", "true", "FALSE", ...)
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default if not set/invalid.
//
// Accepts standard Go duration strings like "5s", "10m", "1h30m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks and duplicates.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	seen := make(map[string]bool)
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// parsePasswordMap parses "Roads=asphalt;Health=clinic".
func parsePasswordMap(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		dept, pw, ok := strings.Cut(pair, "=")
		dept = strings.TrimSpace(dept)
		if !ok || dept == "" {
			continue
		}
		out[dept] = strings.TrimSpace(pw)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("generate session secret: %v", err))
	}
	return hex.EncodeToString(buf)
}
