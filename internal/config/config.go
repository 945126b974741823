// Package config loads the search service's configuration from a file and
// environment variables, following the same viper-based layering the rest
// of the stack uses.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	ListenAddress   string        `mapstructure:"listen_address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestDeadline time.Duration `mapstructure:"request_deadline"`
}

// DatabaseConfig configures the durable Postgres mirror.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// HEDefaults holds default scheme parameters read from configuration. No
// component reads them: a tenant that omits a scheme parameter gets the
// built-in defaults of the crypto/he package.
type HEDefaults struct {
	PolyModulusDegree int   `mapstructure:"poly_modulus_degree"`
	CoeffModulusBits  []int `mapstructure:"coeff_modulus_bits"`
	LogScale          int   `mapstructure:"log_scale"`
}

// LSHDefaults holds default LSH parameters read from configuration. No
// component reads them: initialize requires every tenant to supply its own
// num_tables and hash_size.
type LSHDefaults struct {
	NumTables        int `mapstructure:"num_tables"`
	HashBits         int `mapstructure:"hash_bits"`
	RerankCapDefault int `mapstructure:"rerank_cap_default"`
}

// SearchConfig configures the orchestrator's worker pool and the HE context
// cache. ServerMaxRerank and DefaultMaxItems are loaded but not read: the
// rerank ceiling is the search.ServerMax constant, and a tenant that gives
// no max_items has no item limit.
type SearchConfig struct {
	MaxWorkers        int `mapstructure:"max_workers"`
	HEContextCapacity int `mapstructure:"he_context_capacity"`
	ServerMaxRerank   int `mapstructure:"server_max_rerank"`
	DefaultMaxItems   int `mapstructure:"default_max_items"`
}

// Config is the complete application configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	HE          HEDefaults     `mapstructure:"he"`
	LSH         LSHDefaults    `mapstructure:"lsh"`
	Search      SearchConfig   `mapstructure:"search"`
}

// Load reads configuration from SECUREANN_CONFIG_FILE (default
// "configs/config.yaml") layered under SECUREANN_-prefixed environment
// variables, the same precedence the rest of the stack uses.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	configFile := os.Getenv("SECUREANN_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	v.SetEnvPrefix("SECUREANN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from exactly one file, ignoring
// SECUREANN_CONFIG_FILE. Used by tests and tools that want a deterministic
// config without touching the environment's search path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("server.listen_address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_deadline", 5*time.Second)

	v.SetDefault("database.dsn", "postgres://localhost:5432/secureann?sslmode=disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("he.poly_modulus_degree", 8192)
	v.SetDefault("he.coeff_modulus_bits", []int{60, 40, 40, 60})
	v.SetDefault("he.log_scale", 40)

	v.SetDefault("lsh.num_tables", 20)
	v.SetDefault("lsh.hash_bits", 16)
	v.SetDefault("lsh.rerank_cap_default", 100)

	v.SetDefault("search.max_workers", 0) // 0 => runtime.GOMAXPROCS
	v.SetDefault("search.he_context_capacity", 256)
	v.SetDefault("search.server_max_rerank", 2000)
	v.SetDefault("search.default_max_items", 1_000_000)
}
