// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"codepad/internal/keymap"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"` // empty keeps state in memory
	} `yaml:"database"`

	Repository struct {
		Author      string        `yaml:"author"`
		CommitDelay time.Duration `yaml:"commit_delay"`
	} `yaml:"repository"`

	Remote struct {
		URL       string        `yaml:"url"`
		PushDelay time.Duration `yaml:"push_delay"`
		PullDelay time.Duration `yaml:"pull_delay"`
	} `yaml:"remote"`

	Assist struct {
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"assist"`

	Keybindings []keymap.Binding `yaml:"keybindings"`
	// Extensions are installed on a fresh repository.
	Extensions []string `yaml:"extensions"`

	Environment string `yaml:"environment"` // development, production
	LogLevel    string `yaml:"log_level"`   // debug, info, warn, error
}

// Default returns the configuration used for any field a file leaves unset.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	cfg.Repository.Author = "User"
	cfg.Repository.CommitDelay = 500 * time.Millisecond
	cfg.Remote.URL = "https://github.com/user/project.git"
	cfg.Remote.PushDelay = time.Second
	cfg.Remote.PullDelay = 800 * time.Millisecond
	cfg.Assist.Model = "gemini-2.5-flash"
	cfg.Assist.Timeout = 30 * time.Second
	cfg.Keybindings = keymap.DefaultBindings()
	cfg.Environment = "development"
	cfg.LogLevel = "info"
	return cfg
}

// Path returns the config file for the environment named by CODEPAD_ENV.
func Path() string {
	env := os.Getenv("CODEPAD_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.yaml", env)
}

// Load reads path over the defaults. A missing file is not an error. The
// GEMINI_API_KEY environment variable overrides the file's key.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Assist.APIKey = key
	}
	if len(cfg.Keybindings) == 0 {
		cfg.Keybindings = keymap.DefaultBindings()
	}
	if cfg.Repository.CommitDelay < 0 {
		return nil, fmt.Errorf("repository.commit_delay must not be negative")
	}
	return cfg, nil
}

// Addr is the listen address of the server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
