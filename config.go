package filemeta

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spf13/afero"

	"github.com/mvndaai/filemeta/storage"
)

// StorageConfig selects and parameterizes a storage backend from YAML.
type StorageConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

// Config is the filemeta.yaml-shaped document accepted by LoadConfig.
type Config struct {
	ThreadSafe       bool          `yaml:"thread_safe"`
	AutoSyncInterval time.Duration `yaml:"auto_sync_interval"`
	Storage          StorageConfig `yaml:"storage"`
}

// DefaultConfig returns the configuration filemeta.New uses in the
// absence of any options: not thread-safe, no auto-sync, in-memory
// storage.
func DefaultConfig() *Config {
	return &Config{
		ThreadSafe: false,
		Storage:    StorageConfig{Kind: "memory"},
	}
}

// LoadConfig reads a filemeta.yaml file from path. A missing file yields
// DefaultConfig rather than an error, matching the teacher's own
// "absent config is not a failure" convention.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("filemeta: opening config file: %w", err)
	}
	defer file.Close()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader decodes a Config from reader using strict,
// unknown-field-rejecting YAML decoding.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	cfg := &Config{}

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil {
		if err == io.EOF {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("filemeta: parsing config: %w", err)
	}

	if cfg.Storage.Kind == "" {
		cfg.Storage.Kind = "memory"
	}

	return cfg, nil
}

// ToOptions converts a loaded Config into the Option list filemeta.New
// expects, resolving the storage backend named by Storage.Kind against
// fs.
func (c *Config) ToOptions(fs afero.Fs) ([]Option, error) {
	opts := []Option{WithFilesystem(fs), WithThreadSafe(c.ThreadSafe)}

	if c.AutoSyncInterval > 0 {
		opts = append(opts, WithAutoSync(c.AutoSyncInterval))
	}

	backend, err := c.buildBackend(fs)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithStorage(backend))

	return opts, nil
}

func (c *Config) buildBackend(fs afero.Fs) (storage.Backend, error) {
	switch c.Storage.Kind {
	case "", "memory":
		return storage.NewMemoryBackend(), nil
	case "json":
		if c.Storage.Path == "" {
			return nil, fmt.Errorf("filemeta: storage.kind=json requires storage.path")
		}
		return storage.NewJSONFileBackend(fs, c.Storage.Path)
	default:
		return nil, fmt.Errorf("filemeta: unknown storage.kind %q", c.Storage.Kind)
	}
}
