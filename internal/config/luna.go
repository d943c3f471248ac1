// Package config loads Luna's workspace configuration: .luna/config.yaml
// overridden by LUNA_* environment variables. Every field has a default so a
// fresh workspace runs with no config file at all.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Resolver backends.
const (
	ResolverKeyword = "keyword"
	ResolverGenAI   = "genai"
)

// Luna is the loaded configuration.
type Luna struct {
	// Role of the dashboard user, gating quick actions and team views.
	Role string `mapstructure:"role"`

	// Resolver selects the intent backend: "keyword" or "genai".
	Resolver string `mapstructure:"resolver"`

	// GenAI settings, used when Resolver is "genai".
	GenAI struct {
		Model  string `mapstructure:"model"`
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"genai"`

	// DomainURL is the base URL of the domain API. Empty selects the
	// in-memory demo domain.
	DomainURL string `mapstructure:"domain_url"`

	// PlaybookDir holds extra playbook definitions, watched for changes.
	PlaybookDir string `mapstructure:"playbook_dir"`

	// HistoryDB is the sqlite transcript database path.
	HistoryDB string `mapstructure:"history_db"`

	// Listen is the serve command's bind address.
	Listen string `mapstructure:"listen"`

	// Debug enables verbose logging.
	Debug bool `mapstructure:"debug"`
}

// Dir returns the workspace config directory.
func Dir(workspace string) string {
	return filepath.Join(workspace, ".luna")
}

// Load reads the configuration for a workspace. A missing config file is not
// an error; a malformed one is.
func Load(workspace string) (*Luna, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir(workspace))

	v.SetEnvPrefix("LUNA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("role", "member")
	v.SetDefault("resolver", ResolverKeyword)
	v.SetDefault("genai.model", "gemini-2.0-flash")
	v.SetDefault("genai.api_key", "")
	v.SetDefault("domain_url", "")
	v.SetDefault("playbook_dir", filepath.Join(Dir(workspace), "playbooks"))
	v.SetDefault("history_db", filepath.Join(Dir(workspace), "history.db"))
	v.SetDefault("listen", ":8470")
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", Dir(workspace), err)
		}
	}

	// GEMINI_API_KEY is the conventional key variable; honor it when the
	// config carries none.
	if v.GetString("genai.api_key") == "" {
		v.Set("genai.api_key", os.Getenv("GEMINI_API_KEY"))
	}

	var cfg Luna
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Resolver != ResolverKeyword && cfg.Resolver != ResolverGenAI {
		return nil, fmt.Errorf("config: unknown resolver %q", cfg.Resolver)
	}
	return &cfg, nil
}
