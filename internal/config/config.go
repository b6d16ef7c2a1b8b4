package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	"github.com/AnishMulay/inodestore/internal/log_service"
)

const EnvPrefix = "INODESTORE"

const (
	LogOutputConsole = "console"
	LogOutputFile    = "file"

	DefaultCapacity   = 100
	DefaultListenAddr = "127.0.0.1:7070"
	DefaultDataDir    = "./data"
)

type Config struct {
	NodeID   string `yaml:"node_id" split_words:"true"`
	Capacity int    `yaml:"capacity" split_words:"true"`

	StrictDefective      bool `yaml:"strict_defective" split_words:"true"`
	RollbackOnExhaustion bool `yaml:"rollback_on_exhaustion" split_words:"true"`
	RejectOversized      bool `yaml:"reject_oversized" split_words:"true"`
	RecordCreationTime   bool `yaml:"record_creation_time" split_words:"true"`

	ListenAddr string `yaml:"listen_addr" split_words:"true"`
	DataDir    string `yaml:"data_dir" split_words:"true"`
	LogLevel   string `yaml:"log_level" split_words:"true"`
	LogOutput  string `yaml:"log_output" split_words:"true"`
}

func Default() *Config {
	return &Config{
		NodeID:             "node-" + uuid.NewString()[:8],
		Capacity:           DefaultCapacity,
		RecordCreationTime: true,
		ListenAddr:         DefaultListenAddr,
		DataDir:            DefaultDataDir,
		LogLevel:           log_service.InfoLevel,
		LogOutput:          LogOutputConsole,
	}
}

// Load reads path over the defaults, then applies INODESTORE_* environment
// overrides. A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("unmarshaling config file: %w", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	c.LogOutput = strings.ToLower(c.LogOutput)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Capacity <= 0 || c.Capacity > bs.MaxBlocks {
		return fmt.Errorf("invalid config: capacity must be between 1 and %d, got %d", bs.MaxBlocks, c.Capacity)
	}
	if c.NodeID == "" {
		return errors.New("invalid config: node_id is required")
	}
	if !log_service.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid config: unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogOutput) {
	case LogOutputConsole, LogOutputFile:
	default:
		return fmt.Errorf("invalid config: unknown log_output %q", c.LogOutput)
	}
	return nil
}

// LogDir is where the file log sink writes.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}
