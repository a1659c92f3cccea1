package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/codecritic/codecritic/internal/catalog"
)

var (
	ErrProjectConfigNotFound = errors.New("project config file not found")
	ErrProjectConfigParsing  = errors.New("project config parsing failed")
)

// ProjectConfig holds per-project CLI defaults read from .codecritic.yaml
// in the working directory.
type ProjectConfig struct {
	ChatModel string `yaml:"chat_model"`
	Language  string `yaml:"language"`
}

// DefaultProjectConfig returns the catalog defaults.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		ChatModel: string(catalog.DefaultChatModelID),
		Language:  string(catalog.DefaultLanguageID),
	}
}

// LoadProjectConfig loads and parses the .codecritic.yaml file from dir.
// A missing file returns the defaults along with ErrProjectConfigNotFound
// so callers can treat it as a soft failure.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ".codecritic.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultProjectConfig(), ErrProjectConfigNotFound
		}
		return nil, fmt.Errorf("failed to read .codecritic.yaml: %w", err)
	}

	cfg := DefaultProjectConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProjectConfigParsing, err)
	}

	if !catalog.ChatModelID(cfg.ChatModel).Valid() {
		return nil, fmt.Errorf("%w: unknown chat model %q", ErrProjectConfigParsing, cfg.ChatModel)
	}
	if !catalog.LanguageID(cfg.Language).Valid() {
		return nil, fmt.Errorf("%w: unknown language %q", ErrProjectConfigParsing, cfg.Language)
	}
	return cfg, nil
}
