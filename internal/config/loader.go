package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"helix/pkg/logging"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = "helix"
	configFileName = "config.yaml"
	dotEnvFileName = ".env"
)

// Environment variables that override file configuration.
const (
	EnvClientID     = "HELIX_CLIENT_ID"
	EnvTenantID     = "HELIX_TENANT_ID"
	EnvClientSecret = "HELIX_CLIENT_SECRET"
	EnvAccessToken  = "HELIX_ACCESS_TOKEN"
	EnvCloudType    = "HELIX_CLOUD_TYPE"
	EnvReadOnly     = "HELIX_READ_ONLY"
	EnvOrgMode      = "HELIX_ORG_MODE"
	EnvEnabledTools = "HELIX_ENABLED_TOOLS"
	EnvCacheDir     = "HELIX_CACHE_DIR"
)

// GetDefaultConfigPathOrPanic returns the directory holding the user's config.yaml.
func GetDefaultConfigPathOrPanic() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(dir, userConfigDir)
}

// LoadConfig loads configuration from config.yaml inside configPath, then applies
// .env and environment overrides and validates the result.
// An empty configPath uses the per-user default directory.
func LoadConfig(configPath string) (HelixConfig, error) {
	if configPath == "" {
		configPath = GetDefaultConfigPathOrPanic()
	}
	configFilePath := filepath.Join(configPath, configFileName)

	config, err := loadFile(configFilePath)
	if err != nil {
		return HelixConfig{}, err
	}

	if err := loadDotEnv(dotEnvFileName); err != nil {
		return HelixConfig{}, err
	}

	if err := ApplyEnvironment(&config); err != nil {
		return HelixConfig{}, err
	}

	if errs := Validate(config); errs.HasErrors() {
		return HelixConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			ErrorType:   "validation",
			Message:     errs.Error(),
			Suggestions: []string{"Fix the listed fields in config.yaml or the matching HELIX_* variables"},
		}
	}
	return config, nil
}

func loadFile(configFilePath string) (HelixConfig, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return HelixConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			ErrorType:   "io",
			Message:     err.Error(),
			Suggestions: []string{"Check that the file is readable", "Pass a different directory with --config"},
		}
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return HelixConfig{}, ConfigurationError{
			FilePath:    configFilePath,
			ErrorType:   "parse",
			Message:     err.Error(),
			Suggestions: []string{"Check the YAML syntax near the reported line"},
		}
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// loadDotEnv populates the process environment from a .env file without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		logging.Debug("ConfigLoader", "Loaded environment from %s", path)
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return ConfigurationError{
		FilePath:    path,
		ErrorType:   "parse",
		Message:     err.Error(),
		Suggestions: []string{"Use KEY=value lines in .env"},
	}
}

// ApplyEnvironment overlays HELIX_* environment variables onto config.
func ApplyEnvironment(config *HelixConfig) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ConfigurationError{
				ErrorType:   "env",
				Message:     fmt.Sprintf("%s: %q is not a boolean", key, v),
				Suggestions: []string{fmt.Sprintf("Set %s to true or false", key)},
			}
		}
		*dst = b
		return nil
	}

	setString(EnvClientID, &config.ClientID)
	setString(EnvTenantID, &config.TenantID)
	setString(EnvClientSecret, &config.ClientSecret)
	setString(EnvAccessToken, &config.AccessToken)
	setString(EnvEnabledTools, &config.EnabledTools)
	setString(EnvCacheDir, &config.Cache.Dir)

	if v, ok := os.LookupEnv(EnvCloudType); ok && v != "" {
		config.CloudType = CloudType(v)
	}
	if err := setBool(EnvReadOnly, &config.ReadOnly); err != nil {
		return err
	}
	if err := setBool(EnvOrgMode, &config.OrgMode); err != nil {
		return err
	}

	normalize(config)
	return nil
}

func normalize(config *HelixConfig) {
	config.ClientID = strings.TrimSpace(config.ClientID)
	config.TenantID = strings.TrimSpace(config.TenantID)
	if config.TenantID == "" {
		config.TenantID = DefaultTenantID
	}
	if ct, err := ParseCloudType(string(config.CloudType)); err == nil {
		config.CloudType = ct
	}
	if config.Cache.FileName == "" {
		config.Cache.FileName = DefaultCacheFileName
	}
	if config.Cache.PassphraseEnv == "" {
		config.Cache.PassphraseEnv = DefaultPassphraseEnv
	}
}

// ResolveCacheDir returns the directory that holds the identity cache artifact.
func ResolveCacheDir(c CacheConfig) (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user application data directory: %w", err)
	}
	return filepath.Join(dir, AppDataFolder), nil
}
