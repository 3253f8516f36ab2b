package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pantrywisely/pantry/internal/paths"
	"github.com/pantrywisely/pantry/pkg/types"
)

// Keys in config.yaml. Each can be overridden by PANTRY_<KEY>.
const (
	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyLogLevel      = "log_level"
	cfgKeySyncStrategy  = "sync_strategy"
	cfgKeyBatchSize     = "batch_size"
	cfgKeyBatchInterval = "batch_interval"
	cfgKeyDatabaseURL   = "database_url"
	cfgKeyEndpoint      = "endpoint"
	cfgKeyProjectID     = "project_id"
	cfgKeyCredentials   = "credentials"
	cfgKeyListenAddr    = "listen_addr"
	cfgKeyRateLimit     = "rate_limit"
)

const (
	envPrefix         = "PANTRY"
	defaultLogLevel   = "info"
	defaultListenAddr = ":8080"
	// defaultRateLimit is requests per minute per client for serve.
	defaultRateLimit = 120
)

// configFile is what init writes to config.yaml.
type configFile struct {
	Backend  string `yaml:"backend"`
	DataDir  string `yaml:"data_dir,omitempty"`
	LogLevel string `yaml:"log_level"`
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error; defaults and PANTRY_* variables still apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyListenAddr, defaultListenAddr)
	v.SetDefault(cfgKeyRateLimit, defaultRateLimit)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// storeConfig builds the store configuration from v. A non-empty
// backendFlag replaces the configured backend; dataDir is already resolved.
func storeConfig(v *viper.Viper, backendFlag, dataDir string) types.Config {
	backend := v.GetString(cfgKeyBackend)
	if backendFlag != "" {
		backend = backendFlag
	}
	return types.Config{
		Backend:       backend,
		DataDir:       dataDir,
		SyncStrategy:  v.GetString(cfgKeySyncStrategy),
		BatchSize:     v.GetInt(cfgKeyBatchSize),
		BatchInterval: v.GetInt(cfgKeyBatchInterval),
		DatabaseURL:   v.GetString(cfgKeyDatabaseURL),
		Endpoint:      v.GetString(cfgKeyEndpoint),
		ProjectID:     v.GetString(cfgKeyProjectID),
		Credentials:   v.GetString(cfgKeyCredentials),
	}
}

// writeConfigIfMissing creates config.yaml with the given values. An
// existing file is left alone and reported as not written.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# pantry configuration. Every key can be overridden by PANTRY_<KEY>.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
