package drive

import (
	"context"
	"fmt"

	"notebox/internal/config"
	"notebox/internal/encryption"
	"notebox/internal/nb"
	"notebox/internal/vault"
)

// NewBackendFromConfig creates the relay backend selected by cfg.Type.
func NewBackendFromConfig(ctx context.Context, cfg config.DriveConfig, logger nb.Logger) (Backend, error) {
	switch cfg.Type {
	case "hosted", "":
		v, err := vault.NewVaultFromConfig(cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("creating drive vault: %w", err)
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return nil, fmt.Errorf("creating drive encryptor: %w", err)
		}
		if enc != nil {
			v = vault.NewEncryptedVault(v, enc)
		}
		if err := v.ValidateSetup(); err != nil {
			return nil, fmt.Errorf("validating drive vault: %w", err)
		}
		publicURL := cfg.PublicURL
		if publicURL == "" {
			publicURL = "http://" + cfg.Listen
		}
		return NewHostedBackend(v, publicURL, nil, nil, logger), nil
	case "s3":
		return NewS3Backend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown drive type: %s", cfg.Type)
	}
}
