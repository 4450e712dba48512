package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	AppName      = "kala-sahayak"
	EnvFileName  = "config.env"
	TomlFileName = "kala-sahayak.toml"

	defaultUploadDir   = "temp_uploads"
	defaultListenAddr  = ":8501"
	defaultDBPath      = "listings.db"
	defaultGeminiModel = "gemini-2.5-flash"
)

// Config holds all settings for the application. Credentials are passed
// explicitly to the components that need them; nothing reads process-global
// state after Load returns.
type Config struct {
	ClipdropAPIKey string `toml:"clipdrop_api_key"`
	GeminiAPIKey   string `toml:"gemini_api_key"`
	GeminiModel    string `toml:"gemini_model"`
	UploadDir      string `toml:"upload_dir"`
	ListenAddr     string `toml:"listen_addr"`
	DBPath         string `toml:"db_path"`
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// Load builds a Config from the optional TOML file in the working directory,
// with environment variables taking precedence over file values, and
// defaults filling the rest.
func Load() (Config, error) {
	cfg := Config{}

	if data, err := os.ReadFile(TomlFileName); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", TomlFileName, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", TomlFileName, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env   string
		field *string
	}{
		{"CLIPDROP_API_KEY", &cfg.ClipdropAPIKey},
		{"GEMINI_API_KEY", &cfg.GeminiAPIKey},
		{"GEMINI_MODEL", &cfg.GeminiModel},
		{"KALA_UPLOAD_DIR", &cfg.UploadDir},
		{"KALA_LISTEN_ADDR", &cfg.ListenAddr},
		{"KALA_DB_PATH", &cfg.DBPath},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = defaultGeminiModel
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = defaultUploadDir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
}

// MissingKeys returns the names of required credentials that are not set.
// Both API keys are required before any pipeline stage may run.
func (c Config) MissingKeys() []string {
	var missing []string
	if c.ClipdropAPIKey == "" {
		missing = append(missing, "CLIPDROP_API_KEY")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	return missing
}
