package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config represents the main configuration for medialib.
type Config struct {
	// InternalRoot is the physical directory backing the /assets namespace.
	InternalRoot string `toml:"internal_root" validate:"required"`

	// ThumbnailsDir holds generated thumbnails, named by asset id.
	ThumbnailsDir string `toml:"thumbnails_dir"`

	// Admins lists user ids with unrestricted access.
	Admins []string `toml:"admins"`

	// DeviceRoots maps user ids to the physical roots of their devices.
	DeviceRoots map[string]string `toml:"device_roots"`

	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database" validate:"required"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
	Scanner    ScannerConfig    `toml:"scanner"`
}

// DatabaseConfig represents configuration for the index database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type" validate:"required,oneof=sqlite memory"`
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents configuration for the content archive.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type" validate:"omitempty,oneof=none memory filesystem s3"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	Bucket          string `toml:"bucket,omitempty"`
	Region          string `toml:"region,omitempty"`
	KeyPrefix       string `toml:"key_prefix,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for archive encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ScannerConfig holds scan-related settings.
type ScannerConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(internalRoot, baseDir string) *Config {
	return &Config{
		InternalRoot:  internalRoot,
		ThumbnailsDir: filepath.Join(baseDir, "thumbnails"),
		LogDir:        filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, "medialib.db"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "medialib.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "medialib.key"),
		},
	}
}

var validate = validator.New()

// Validate checks the config for structural problems before any component
// is built from it.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Database.Type == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("invalid config: database.path required for sqlite")
	}
	if c.Archive.Type == "filesystem" && c.Archive.Root == "" {
		return fmt.Errorf("invalid config: archive.root required for filesystem archive")
	}
	if c.Archive.Type == "s3" && (c.Archive.Bucket == "" || c.Archive.Region == "") {
		return fmt.Errorf("invalid config: archive.bucket and archive.region required for s3 archive")
	}
	return nil
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

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
