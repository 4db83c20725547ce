// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mmynk/esusu/internal/chain"
	"github.com/mmynk/esusu/internal/token"
)

// Ledger backends.
const (
	LedgerSQLite = "sqlite"
	LedgerRedis  = "redis"
)

// Config is the full server configuration.
type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	DBPath    string `env:"DB_PATH" envDefault:"./data/esusu.db"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	ChainRPCURL       string        `env:"CHAIN_RPC_URL" envDefault:"https://forno.celo.org"`
	ChainTimeout      time.Duration `env:"CHAIN_TIMEOUT" envDefault:"5s"`
	TreasuryAddress   string        `env:"TREASURY_ADDRESS" envDefault:"0xb82896C4F251ed65186b416dbDb6f6192DFAF926"`
	MinConfirmations  uint64        `env:"MIN_CONFIRMATIONS" envDefault:"1"`
	MaxTxAge          time.Duration `env:"MAX_TX_AGE" envDefault:"10m"`
	TokenRegistryFile string        `env:"TOKEN_REGISTRY_FILE"`
	RequirePayerMatch bool          `env:"REQUIRE_PAYER_MATCH" envDefault:"true"`

	MaxMembers   int           `env:"MAX_MEMBERS" envDefault:"5"`
	OverdueGrace time.Duration `env:"OVERDUE_GRACE" envDefault:"48h"`

	NATSURL string `env:"NATS_URL"`

	LedgerBackend string        `env:"LEDGER_BACKEND" envDefault:"sqlite"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"10s"`
}

// Load reads a .env file in the working directory when one exists, then parses
// the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express and normalizes the treasury address.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	addr, err := chain.NormalizeAddress(c.TreasuryAddress)
	if err != nil {
		return fmt.Errorf("TREASURY_ADDRESS: %w", err)
	}
	c.TreasuryAddress = addr
	if c.MaxMembers < 2 {
		return fmt.Errorf("MAX_MEMBERS must be at least 2, got %d", c.MaxMembers)
	}
	if c.MinConfirmations == 0 {
		return errors.New("MIN_CONFIRMATIONS must be at least 1")
	}
	if c.MaxTxAge <= 0 || c.ChainTimeout <= 0 || c.OverdueGrace <= 0 {
		return errors.New("MAX_TX_AGE, CHAIN_TIMEOUT and OVERDUE_GRACE must be positive")
	}
	switch c.LedgerBackend {
	case LedgerSQLite:
	case LedgerRedis:
		if c.RedisAddr == "" {
			return errors.New("LEDGER_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TokenRegistry returns the registry from TOKEN_REGISTRY_FILE, or the built-in
// Celo stablecoins when unset.
func (c *Config) TokenRegistry() (*token.Registry, error) {
	if c.TokenRegistryFile == "" {
		return token.Default(), nil
	}
	return token.LoadFile(c.TokenRegistryFile)
}
