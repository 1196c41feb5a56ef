package infra

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MantisClone/df-py/pkg/units"
)

// Config holds the deployment-time settings of one datatoken core.
// Values under amounts are human-readable decimal strings, converted
// to base-18 at load time; addresses are 0x-hex.
type Config struct {
	Token struct {
		Name    string `yaml:"name"`
		Symbol  string `yaml:"symbol"`
		Address string `yaml:"address"`
		ChainID int64  `yaml:"chain_id"`
		Cap     string `yaml:"cap"`
		Minter  string `yaml:"minter"`
	} `yaml:"token"`

	PublishFee struct {
		Address string `yaml:"address"`
		Token   string `yaml:"token"`
		Amount  string `yaml:"amount"`
	} `yaml:"publish_fee"`

	Registry struct {
		Address string `yaml:"address"`
		Owner   string `yaml:"owner"`
	} `yaml:"registry"`

	Router struct {
		ProtocolFeeRate    string `yaml:"protocol_fee_rate"`
		CommunityCollector string `yaml:"community_collector"`
	} `yaml:"router"`

	Storage struct {
		AuditDBPath string `yaml:"audit_db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the yaml config, applies environment
// overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv lets deployment environments replace file values
// without editing the config on disk.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("DATATOKEN_AUDIT_DB"); v != "" {
		cfg.Storage.AuditDBPath = v
	}
	if v := os.Getenv("DATATOKEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Token.Name == "" || c.Token.Symbol == "" {
		return fmt.Errorf("token name and symbol are required")
	}
	if c.Token.ChainID <= 0 {
		return fmt.Errorf("chain_id must be positive")
	}
	cap, err := c.Cap()
	if err != nil {
		return err
	}
	if cap.Sign() <= 0 {
		return fmt.Errorf("cap must be positive")
	}
	if _, err := c.PublishFeeAmount(); err != nil {
		return err
	}
	if _, err := c.ProtocolFeeRate(); err != nil {
		return err
	}
	return nil
}

// Cap returns the supply cap in base-18 minor units.
func (c *Config) Cap() (*big.Int, error) {
	v, err := units.ToBase18(c.Token.Cap)
	if err != nil {
		return nil, fmt.Errorf("cap: %w", err)
	}
	return v, nil
}

// PublishFeeAmount returns the publish fee in base-18 minor units.
func (c *Config) PublishFeeAmount() (*big.Int, error) {
	v, err := units.ToBase18(c.PublishFee.Amount)
	if err != nil {
		return nil, fmt.Errorf("publish fee amount: %w", err)
	}
	return v, nil
}

// ProtocolFeeRate returns the router cut as a base-18 rate.
func (c *Config) ProtocolFeeRate() (*big.Int, error) {
	v, err := units.ToBase18(c.Router.ProtocolFeeRate)
	if err != nil {
		return nil, fmt.Errorf("protocol fee rate: %w", err)
	}
	return v, nil
}

// NewLogger builds the process-wide slog logger from config.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
