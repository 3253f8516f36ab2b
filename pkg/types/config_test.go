package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "mongo", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: BackendSQLite},
			wantErr: nil,
		},
		{
			name:    "sqlite with unknown sync strategy",
			config:  Config{Backend: BackendSQLite, SyncStrategy: "eventually"},
			wantErr: ErrSyncStrategyUnknown,
		},
		{
			name:    "sqlite with negative batch size",
			config:  Config{Backend: BackendSQLite, SyncStrategy: SyncBatch, BatchSize: -1},
			wantErr: ErrBatchSizeInvalid,
		},
		{
			name:    "sqlite with negative batch interval",
			config:  Config{Backend: BackendSQLite, SyncStrategy: SyncBatch, BatchInterval: -3},
			wantErr: ErrBatchIntervalInvalid,
		},
		{
			name:    "postgres without database URL",
			config:  Config{Backend: BackendPostgres},
			wantErr: ErrDatabaseURLEmpty,
		},
		{
			name:    "valid postgres config",
			config:  Config{Backend: BackendPostgres, DatabaseURL: "postgres://localhost/pantry"},
			wantErr: nil,
		},
		{
			name:    "rtdb with relative endpoint",
			config:  Config{Backend: BackendRTDB, Endpoint: "pantry.example"},
			wantErr: ErrEndpointInvalid,
		},
		{
			name:    "rtdb with ftp endpoint",
			config:  Config{Backend: BackendRTDB, Endpoint: "ftp://pantry.example"},
			wantErr: ErrEndpointInvalid,
		},
		{
			name:    "valid rtdb config",
			config:  Config{Backend: BackendRTDB, Endpoint: "https://pantry-default-rtdb.example.app", ProjectID: "pantry"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if got := c.GetSyncStrategy(); got != SyncImmediate {
		t.Errorf("GetSyncStrategy() = %q, want %q", got, SyncImmediate)
	}
	if got := c.GetBatchSize(); got != DefaultBatchSize {
		t.Errorf("GetBatchSize() = %d, want %d", got, DefaultBatchSize)
	}
	if got := c.GetBatchInterval(); got != DefaultBatchInterval {
		t.Errorf("GetBatchInterval() = %d, want %d", got, DefaultBatchInterval)
	}

	c = Config{SyncStrategy: SyncBatch, BatchSize: 3, BatchInterval: 1}
	if got := c.GetSyncStrategy(); got != SyncBatch {
		t.Errorf("GetSyncStrategy() = %q, want %q", got, SyncBatch)
	}
	if got := c.GetBatchSize(); got != 3 {
		t.Errorf("GetBatchSize() = %d, want 3", got)
	}
	if got := c.GetBatchInterval(); got != 1 {
		t.Errorf("GetBatchInterval() = %d, want 1", got)
	}
}
