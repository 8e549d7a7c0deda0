package vault

import (
	"testing"

	"notebox/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{name: "memory vault", cfg: config.VaultConfig{Type: "memory"}},
		{name: "filesystem vault", cfg: config.VaultConfig{Type: "filesystem", Root: "TEMP"}},
		{name: "filesystem vault without root", cfg: config.VaultConfig{Type: "filesystem"}, wantErr: true},
		{name: "unknown type", cfg: config.VaultConfig{Type: "tape"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Root == "TEMP" {
				tt.cfg.Root = t.TempDir()
			}

			v, err := NewVaultFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v == nil {
				t.Error("NewVaultFromConfig() returned nil vault")
			}
		})
	}
}
