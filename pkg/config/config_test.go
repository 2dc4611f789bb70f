package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("Expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.StorageMode != "console" {
		t.Errorf("Expected default storage mode console, got %s", cfg.StorageMode)
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Errorf("Expected default cache TTL 5s, got %v", cfg.CacheTTL)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_MODE", "postgres")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("ADMIN_ADDRESS", "0x000000000000000000000000000000000000ad11")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.HTTPPort != "9090" {
		t.Errorf("Expected HTTP port 9090, got %s", cfg.HTTPPort)
	}
	if cfg.StorageMode != "postgres" {
		t.Errorf("Expected storage mode postgres, got %s", cfg.StorageMode)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("Expected cache TTL 30s, got %v", cfg.CacheTTL)
	}
	if cfg.AdminAddress != common.HexToAddress("0x000000000000000000000000000000000000ad11") {
		t.Errorf("Unexpected admin address %s", cfg.AdminAddress.Hex())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad-storage-mode", "STORAGE_MODE", "s3"},
		{"zero-admin", "ADMIN_ADDRESS", "0x0000000000000000000000000000000000000000"},
		{"zero-dust-token", "DUST_TOKEN_ADDRESS", "0x0000000000000000000000000000000000000000"},
		{"negative-breaker-threshold", "STORAGE_BREAKER_THRESHOLD", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected validation error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
