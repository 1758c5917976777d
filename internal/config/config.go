package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration of one field store.
type Config struct {
	// Name identifies the store in the vault; index snapshots are kept
	// under it.
	Name       string           `toml:"name" yaml:"name"`
	BaseDir    string           `toml:"base_dir" yaml:"base_dir"`
	LogDir     string           `toml:"log_dir" yaml:"log_dir"`
	Vaults     []VaultConfig    `toml:"vaults" yaml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption" yaml:"encryption"`
	Database   DatabaseConfig   `toml:"database" yaml:"database"`
	Store      StoreConfig      `toml:"store" yaml:"store"`
	Schema     SchemaConfig     `toml:"schema" yaml:"schema"`
	Retrieve   RetrieveConfig   `toml:"retrieve" yaml:"retrieve"`
	Grammar    GrammarConfig    `toml:"grammar" yaml:"grammar"`
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type" yaml:"type"` // "age" (default), "none" or "test"
	PublicKeyPath  string `toml:"public_key_path" yaml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path" yaml:"private_key_path"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type" yaml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name" yaml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty" yaml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty" yaml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty" yaml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty" yaml:"s3_endpoint,omitempty"`
	S3PathStyle       bool   `toml:"s3_path_style,omitempty" yaml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty" yaml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty" yaml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty" yaml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the field index.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	// "sqlite" or "memory"
	Type string `toml:"type" yaml:"type"`
	// only used for type=sqlite
	DataDir string `toml:"data_dir,omitempty" yaml:"data_dir,omitempty"`
}

// StoreConfig controls how payloads are encoded before they reach the vault.
type StoreConfig struct {
	// "none" (default), "zstd" or "lz4"
	Compression string `toml:"compression" yaml:"compression"`
	SpoolDir    string `toml:"spool_dir,omitempty" yaml:"spool_dir,omitempty"`
}

// SchemaConfig lists the axes of each key level, outermost first.
type SchemaConfig struct {
	Levels [][]string `toml:"levels,omitempty" yaml:"levels,omitempty"`
}

// RetrieveConfig tunes the retrieval pipeline. Zero values take the defaults.
type RetrieveConfig struct {
	ChunkSize  int `toml:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	StallLimit int `toml:"stall_limit,omitempty" yaml:"stall_limit,omitempty"`
}

// GrammarConfig overrides the request-text delimiters. Each field is a
// single character; empty fields keep the default.
type GrammarConfig struct {
	ClauseSep string `toml:"clause_sep,omitempty" yaml:"clause_sep,omitempty"`
	ValueSep  string `toml:"value_sep,omitempty" yaml:"value_sep,omitempty"`
	Assign    string `toml:"assign,omitempty" yaml:"assign,omitempty"`
	Escape    string `toml:"escape,omitempty" yaml:"escape,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(name, baseDir string) *Config {
	return &Config{
		Name:    name,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "fdb.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "fdb.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Store:    StoreConfig{Compression: "none"},
	}
}

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the file extension. Anything that is
// not .yaml or .yml is read as TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Manager handles reading and writing configuration. The zero Manager uses
// TOML.
type Manager struct {
	Format Format
}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	switch m.Format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	switch m.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	default:
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
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

	m := &Manager{Format: FormatForPath(path)}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{Format: FormatForPath(path)}
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

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(c.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", c.Name)
	}
	if len(c.Vaults) == 0 {
		return fmt.Errorf("no vaults configured")
	}
	for field, v := range map[string]string{
		"clause_sep": c.Grammar.ClauseSep,
		"value_sep":  c.Grammar.ValueSep,
		"assign":     c.Grammar.Assign,
		"escape":     c.Grammar.Escape,
	} {
		if v != "" && len([]rune(v)) != 1 {
			return fmt.Errorf("grammar.%s must be a single character, got %q", field, v)
		}
	}
	if c.Retrieve.ChunkSize < 0 || c.Retrieve.StallLimit < 0 {
		return fmt.Errorf("retrieve settings must not be negative")
	}
	return nil
}
