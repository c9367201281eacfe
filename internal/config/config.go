// Package config resolves the runtime configuration for the lexgraph
// binary: an optional YAML file overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/lexgraph/internal/platform/envutil"
)

type Neo4jConfig struct {
	URI            string `yaml:"uri"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxPoolSize    int    `yaml:"max_pool_size"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	LogMode  string       `yaml:"log_mode"`
	Language string       `yaml:"language"`
	Neo4j    Neo4jConfig  `yaml:"neo4j"`
	Server   ServerConfig `yaml:"server"`
}

func defaults() Config {
	return Config{
		LogMode:  "development",
		Language: "pt",
		Neo4j: Neo4jConfig{
			URI:            "bolt://localhost:7687",
			User:           "neo4j",
			TimeoutSeconds: 10,
			MaxPoolSize:    50,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads the YAML file at path (when non-empty) on top of the defaults,
// then applies environment overrides. Missing file with an explicit path is
// an error; an empty path means env-only configuration.
func Load(path string) (Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if strings.TrimSpace(cfg.Neo4j.URI) == "" {
		return Config{}, fmt.Errorf("config: neo4j uri is required")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogMode = envutil.Str("LOG_MODE", c.LogMode)
	c.Language = envutil.Str("LEXGRAPH_LANGUAGE", c.Language)
	c.Neo4j.URI = envutil.Str("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.User = envutil.Str("NEO4J_USER", c.Neo4j.User)
	c.Neo4j.Password = envutil.Str("NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = envutil.Str("NEO4J_DATABASE", c.Neo4j.Database)
	c.Neo4j.TimeoutSeconds = envutil.Int("NEO4J_TIMEOUT_SECONDS", c.Neo4j.TimeoutSeconds)
	c.Neo4j.MaxPoolSize = envutil.Int("NEO4J_MAX_POOL_SIZE", c.Neo4j.MaxPoolSize)
	c.Server.Addr = envutil.Str("LEXGRAPH_HTTP_ADDR", c.Server.Addr)
}
