package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/VectorBits/Reentry/src/internal/severity"
)

//go:embed settings.example.yaml
var defaultSettings []byte

type DatabaseConfig struct {
	// Driver is sqlite, postgres or mysql.
	Driver string `yaml:"driver"`
	// DSN overrides the discrete fields below when set.
	DSN      string `yaml:"dsn"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type ReportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type AppConfig struct {
	Analysis AnalysisConfig  `yaml:"analysis"`
	Severity severity.Policy `yaml:"severity"`
	Database DatabaseConfig  `yaml:"database"`
	Report   ReportConfig    `yaml:"report"`
	Log      LogConfig       `yaml:"log"`
}

var GlobalConfig *AppConfig
var loadOnce sync.Once
var loadedConfig *AppConfig
var loadedErr error

// LoadConfig 加载 YAML 配置. Without a settings file the embedded defaults
// are used; environment overrides apply either way.
func LoadConfig() (*AppConfig, error) {
	loadOnce.Do(func() {
		loadedConfig, loadedErr = LoadConfigFrom(findConfigFile())
		GlobalConfig = loadedConfig
	})

	if loadedErr != nil {
		return nil, loadedErr
	}
	return loadedConfig, nil
}

// LoadConfigFrom parses path on top of the defaults. An empty path yields
// the defaults.
func LoadConfigFrom(path string) (*AppConfig, error) {
	config, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default parses the embedded settings.
func Default() (*AppConfig, error) {
	config := &AppConfig{
		Analysis: DefaultAnalysisConfig(),
		Severity: severity.DefaultPolicy(),
	}
	if err := yaml.Unmarshal(defaultSettings, config); err != nil {
		return nil, fmt.Errorf("failed to parse default settings: %w", err)
	}
	return config, nil
}

// InitConfigFile writes the default settings to path unless it exists.
func InitConfigFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, defaultSettings, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func findConfigFile() string {
	possiblePaths := []string{
		"config/settings.yaml",
		"settings.yaml",
		"src/config/settings.yaml",
		"../config/settings.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// GetDatabaseDSN builds a mysql DSN from the discrete fields.
func (c *AppConfig) GetDatabaseDSN(includeDBName bool) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
	)
	if includeDBName {
		dsn += fmt.Sprintf("%s?parseTime=true&charset=utf8mb4", c.Database.Name)
	} else {
		dsn += "?parseTime=true&charset=utf8mb4"
	}
	return dsn
}

// GetPostgresDSN builds a libpq keyword DSN.
func (c *AppConfig) GetPostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.Name, c.Database.SSLMode)
}

func GetConfigPath() string {
	return findConfigFile()
}
