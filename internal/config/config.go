package config

import (
	"errors"
	"net/url"
	"os"
	"strings"
)

type Config struct {
	DataAPIURL    string
	APIKey        string
	ServiceToken  string
	ProbeTable    string
	MigrationsDir string
	ConsoleURL    string
	LedgerTable   string
	HTTPAddress   string
	LogLevel      string
	DB            DBConfig
}

// DBConfig describes an optional direct database connection used by
// apply, verify and status. Probe and announce never touch it.
type DBConfig struct {
	Provider string
	DSN      string
	Schema   string
}

func Load() (Config, error) {
	cfg := Config{
		DataAPIURL:    os.Getenv("SCHEMADOCTOR_DATA_API_URL"),
		APIKey:        os.Getenv("SCHEMADOCTOR_API_KEY"),
		ServiceToken:  os.Getenv("SCHEMADOCTOR_SERVICE_TOKEN"),
		ProbeTable:    getEnv("SCHEMADOCTOR_PROBE_TABLE", "projects"),
		MigrationsDir: getEnv("SCHEMADOCTOR_MIGRATIONS_DIR", "supabase/migrations"),
		ConsoleURL:    getEnv("SCHEMADOCTOR_CONSOLE_URL", "https://app.supabase.com/project/_/sql"),
		LedgerTable:   getEnv("SCHEMADOCTOR_LEDGER_TABLE", "schema_migrations"),
		HTTPAddress:   getEnv("SCHEMADOCTOR_HTTP_ADDR", ":8080"),
		LogLevel:      getEnv("SCHEMADOCTOR_LOG_LEVEL", "info"),
		DB: DBConfig{
			Provider: strings.ToLower(os.Getenv("SCHEMADOCTOR_DB_PROVIDER")),
			DSN:      os.Getenv("SCHEMADOCTOR_DB_DSN"),
			Schema:   os.Getenv("SCHEMADOCTOR_DB_SCHEMA"),
		},
	}

	// The service token falls back to the API key; hosted data APIs accept
	// the anon key as a bearer token.
	if cfg.ServiceToken == "" {
		cfg.ServiceToken = cfg.APIKey
	}

	if cfg.DataAPIURL != "" {
		if _, err := url.ParseRequestURI(cfg.DataAPIURL); err != nil {
			return Config{}, errors.New("SCHEMADOCTOR_DATA_API_URL must be a valid URL")
		}
	}

	return cfg, nil
}

// RequireDataAPI validates the fields needed to talk to the hosted data API.
func (c Config) RequireDataAPI() error {
	if c.DataAPIURL == "" {
		return errors.New("SCHEMADOCTOR_DATA_API_URL is required")
	}
	if c.APIKey == "" {
		return errors.New("SCHEMADOCTOR_API_KEY is required")
	}
	if c.ProbeTable == "" {
		return errors.New("SCHEMADOCTOR_PROBE_TABLE is required")
	}
	return nil
}

// RequireDB validates the fields needed for a direct database connection.
func (c Config) RequireDB() error {
	switch c.DB.Provider {
	case "postgres", "mysql":
	case "":
		return errors.New("SCHEMADOCTOR_DB_PROVIDER is required (postgres or mysql)")
	default:
		return errors.New("SCHEMADOCTOR_DB_PROVIDER must be postgres or mysql")
	}
	if c.DB.DSN == "" {
		return errors.New("SCHEMADOCTOR_DB_DSN is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
