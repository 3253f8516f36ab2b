package types

import (
	"errors"
	"net/url"
)

// Config holds backend selection and connection parameters for a
// DocumentStore. It is read once at process start.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`

	// sqlite backend.
	DataDir       string `json:"data_dir" yaml:"data_dir"`
	SyncStrategy  string `json:"sync_strategy" yaml:"sync_strategy"`
	BatchSize     int    `json:"batch_size" yaml:"batch_size"`
	BatchInterval int    `json:"batch_interval" yaml:"batch_interval"` // seconds

	// postgres backend.
	DatabaseURL string `json:"database_url" yaml:"database_url"`

	// rtdb backend: the hosted realtime database.
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	ProjectID   string `json:"project_id" yaml:"project_id"`
	Credentials string `json:"credentials" yaml:"credentials"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRTDB     = "rtdb"
)

// Sync strategies for the sqlite backend.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
	SyncBatch     = "batch"
)

// Defaults applied by the sqlite backend when the fields are zero.
const (
	DefaultBatchSize     = 10
	DefaultBatchInterval = 5
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrSyncStrategyUnknown  = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid     = errors.New("batch size must be positive")
	ErrBatchIntervalInvalid = errors.New("batch interval must be positive")
	ErrDatabaseURLEmpty     = errors.New("database_url must be set for the postgres backend")
	ErrEndpointInvalid      = errors.New("endpoint must be an absolute http(s) URL")
)

var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendRTDB:     true,
}

var knownSyncStrategies = map[string]bool{
	"":            true,
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

// Validate checks that the Config is well-formed for its backend. It returns
// a sentinel error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendSQLite:
		if !knownSyncStrategies[c.SyncStrategy] {
			return ErrSyncStrategyUnknown
		}
		if c.BatchSize < 0 {
			return ErrBatchSizeInvalid
		}
		if c.BatchInterval < 0 {
			return ErrBatchIntervalInvalid
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLEmpty
		}
	case BackendRTDB:
		u, err := url.Parse(c.Endpoint)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrEndpointInvalid
		}
	}
	return nil
}

// GetSyncStrategy returns the effective sync strategy, defaulting to immediate.
func (c Config) GetSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}

// GetBatchSize returns the batch size, defaulting to DefaultBatchSize.
func (c Config) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// GetBatchInterval returns the batch interval in seconds, defaulting to
// DefaultBatchInterval.
func (c Config) GetBatchInterval() int {
	if c.BatchInterval <= 0 {
		return DefaultBatchInterval
	}
	return c.BatchInterval
}
