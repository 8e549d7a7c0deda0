package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for notebox.
type Config struct {
	ClientID  string `toml:"client_id"`
	BaseDir   string `toml:"base_dir"`
	LogDir    string `toml:"log_dir"`
	UserName  string `toml:"user_name,omitempty"` // default uploader name for non-admin adds
	AdminPass string `toml:"admin_passphrase,omitempty"`

	Catalog  CatalogConfig  `toml:"catalog"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Endpoint EndpointConfig `toml:"endpoint"`
	Drive    DriveConfig    `toml:"drive"`
}

// CatalogConfig represents configuration for the catalog store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CatalogConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	Watch   bool   `toml:"watch"`              // republish on writes from other processes (sqlite only)
}

// LedgerConfig represents configuration for the recovery ledger.
type LedgerConfig struct {
	Type string `toml:"type"`           // "file" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=file
}

// EndpointConfig describes the remote transfer endpoint used for uploads.
type EndpointConfig struct {
	URL           string `toml:"url"`
	SettleDelayMS int    `toml:"settle_delay_ms"` // wait before finalize; defaults to 2500
	TimeoutMS     int    `toml:"timeout_ms"`      // per-request timeout for getUrl/finalize; 0 means none
}

// DriveConfig configures the relay served by `notebox drive serve`.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DriveConfig struct {
	Type      string `toml:"type"`   // "hosted" or "s3"
	Listen    string `toml:"listen"` // e.g. "127.0.0.1:8787"
	PublicURL string `toml:"public_url,omitempty"`

	Vault      VaultConfig      `toml:"vault"`      // only used for type=hosted
	Encryption EncryptionConfig `toml:"encryption"` // only used for type=hosted

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// VaultConfig represents configuration for the hosted relay's blob vault.
type VaultConfig struct {
	Type string `toml:"type"`           // "memory" or "filesystem"
	Root string `toml:"root,omitempty"` // only used for type=filesystem
}

// EncryptionConfig holds the age key pair used to encrypt hosted blobs at rest.
type EncryptionConfig struct {
	Type         string `toml:"type"` // "none" (default), "age" or "test"
	IdentityPath string `toml:"identity_path,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(clientID, baseDir string) *Config {
	return &Config{
		ClientID: clientID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "catalog"),
			Watch:   true,
		},
		Ledger: LedgerConfig{
			Type: "file",
			Path: filepath.Join(baseDir, "pending-upload.json"),
		},
		Endpoint: EndpointConfig{
			URL:           "http://127.0.0.1:8787/",
			SettleDelayMS: 2500,
			TimeoutMS:     30000,
		},
		Drive: DriveConfig{
			Type:      "hosted",
			Listen:    "127.0.0.1:8787",
			PublicURL: "http://127.0.0.1:8787",
			Vault: VaultConfig{
				Type: "filesystem",
				Root: filepath.Join(baseDir, "drive"),
			},
			Encryption: EncryptionConfig{
				Type:         "none",
				IdentityPath: filepath.Join(baseDir, "keys", "drive.key"),
			},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold the admin passphrase and S3 secrets.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
