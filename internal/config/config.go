package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"query-evolver/internal/apperrors"
)

// Storage drivers.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config holds the configuration for the application.
type Config struct {
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	Storage struct {
		Driver string `mapstructure:"driver"`
		Dir    string `mapstructure:"dir"`
	} `mapstructure:"storage"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	LLM struct {
		URL     string        `mapstructure:"url"`
		Model   string        `mapstructure:"model"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"llm"`
	Graph struct {
		URI      string `mapstructure:"uri"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Database string `mapstructure:"database"`
	} `mapstructure:"graph"`
	Benchmark struct {
		Path     string `mapstructure:"path"`
		MaxItems int    `mapstructure:"max_items"`
	} `mapstructure:"benchmark"`
	Evolution struct {
		Generations int    `mapstructure:"generations"`
		Policy      string `mapstructure:"policy"`
		Seed        uint64 `mapstructure:"seed"`
		Concurrency int    `mapstructure:"concurrency"`
		// Diagnose asks the language model to diagnose every generation
		// and suggest a stage.
		Diagnose    bool   `mapstructure:"diagnose"`
	} `mapstructure:"evolution"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from an optional .env file, a config
// file and the environment, in increasing order of precedence.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, apperrors.Configuration("load env file", err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, apperrors.Configuration("bind env", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.Configuration("read config", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, apperrors.Configuration("decode config", err)
	}

	config.LLM.URL = strings.TrimRight(strings.TrimSpace(config.LLM.URL), "/")
	config.Storage.Driver = strings.ToLower(strings.TrimSpace(config.Storage.Driver))

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.dir", "states")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("llm.url", "http://localhost:11434")
	v.SetDefault("llm.model", "mistral")
	v.SetDefault("llm.timeout", 5*time.Minute)
	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.user", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", "neo4j")
	v.SetDefault("benchmark.path", "benchmarks/cypher_bench.json")
	v.SetDefault("benchmark.max_items", 0)
	v.SetDefault("evolution.generations", 10)
	v.SetDefault("evolution.policy", "hill_climb")
	v.SetDefault("evolution.seed", 0)
	v.SetDefault("evolution.concurrency", 1)
	v.SetDefault("evolution.diagnose", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "certs/server.crt")
	v.SetDefault("tls.key_file", "certs/server.key")
	v.SetDefault("tls.hostnames", []string{"localhost", "127.0.0.1"})
}

// bindLegacyEnv keeps the variable names used by existing .env files working.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"graph.uri":      {"GRAPH_URI", "NEO4J_URI"},
		"graph.user":     {"GRAPH_USER", "NEO4J_USERNAME"},
		"graph.password": {"GRAPH_PASSWORD", "NEO4J_PASSWORD"},
		"graph.database": {"GRAPH_DATABASE", "NEO4J_DATABASE"},
		"llm.url":        {"LLM_URL", "OLLAMA_BASE_URL"},
		"llm.model":      {"LLM_MODEL", "OLLAMA_MODEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// PostgresDSN renders the DB section as a libpq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// ValidateStorage checks the storage section.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.Dir == "" {
			return apperrors.Configurationf("validate storage", "storage.dir is required for the file driver")
		}
	case StoragePostgres:
		if c.DB.Host == "" || c.DB.Name == "" || c.DB.User == "" {
			return apperrors.Configurationf("validate storage", "db.host, db.name and db.user are required for the postgres driver")
		}
	default:
		return apperrors.Configurationf("validate storage", "unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// ValidateForRun checks everything an evolution run needs before the first
// generation starts.
func (c *Config) ValidateForRun() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	var missing []string
	if c.Graph.URI == "" {
		missing = append(missing, "graph.uri")
	}
	if c.Graph.User == "" {
		missing = append(missing, "graph.user")
	}
	if c.Graph.Password == "" {
		missing = append(missing, "graph.password")
	}
	if c.LLM.URL == "" {
		missing = append(missing, "llm.url")
	}
	if c.Benchmark.Path == "" {
		missing = append(missing, "benchmark.path")
	}
	if len(missing) > 0 {
		return apperrors.Configurationf("validate run", "missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.Evolution.Generations < 0 {
		return apperrors.Configurationf("validate run", "evolution.generations cannot be negative")
	}
	if c.Evolution.Concurrency < 1 {
		return apperrors.Configurationf("validate run", "evolution.concurrency must be at least 1")
	}
	return nil
}

// ValidateTLS checks the TLS section when TLS is enabled.
func (c *Config) ValidateTLS() error {
	if !c.TLS.Enable {
		return nil
	}
	if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
		return apperrors.Configurationf("validate tls", "tls.cert_file and tls.key_file are required when tls.enable is set")
	}
	return nil
}
