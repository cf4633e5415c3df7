package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/market"
)

// EnvPrefix namespaces environment overrides, e.g. PAPERTRADER_BALANCE.
const EnvPrefix = "papertrader"

// Config represents the complete paper trading configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Markets    []market.Market  `json:"markets,omitempty" yaml:"markets,omitempty"`
	History    HistoryConfig    `json:"history" yaml:"history"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Serve      ServeConfig      `json:"serve" yaml:"serve"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

func (a AccountConfig) Account() broker.Account {
	return broker.Account{ID: a.ID, Name: a.Name, Currency: a.Currency, Balance: a.Balance}
}

// HistoryConfig bounds the in-memory history. Zero keeps everything.
type HistoryConfig struct {
	Capacity int `json:"capacity" yaml:"capacity"`
}

// JournalConfig selects the persistent recorder
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	HistoryFile string `json:"history_file,omitempty" yaml:"history_file,omitempty"`
	MarketFile  string `json:"market_file,omitempty" yaml:"market_file,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	ParquetFile string `json:"parquet_file,omitempty" yaml:"parquet_file,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

type ServeConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

// SimulationConfig drives the run and serve commands
type SimulationConfig struct {
	Symbol     string      `json:"symbol" yaml:"symbol"`
	InitialBid float64     `json:"initial_bid" yaml:"initial_bid"`
	InitialAsk float64     `json:"initial_ask" yaml:"initial_ask"`
	Order      OrderConfig `json:"order" yaml:"order"`
	PriceSteps []PriceStep `json:"price_steps,omitempty" yaml:"price_steps,omitempty"`
}

// OrderConfig is the market order placed at the first tick. Stop and
// target are distances in pips from the entry; zero leaves them unset.
// A non-zero RiskPct sizes the order from the margin balance and the stop
// distance, replacing Quantity.
type OrderConfig struct {
	Direction  string  `json:"direction" yaml:"direction"`
	Quantity   float64 `json:"quantity" yaml:"quantity"`
	RiskPct    float64 `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"`
	Leverage   float64 `json:"leverage,omitempty" yaml:"leverage,omitempty"`
	StopPips   float64 `json:"stop_pips,omitempty" yaml:"stop_pips,omitempty"`
	TargetPips float64 `json:"target_pips,omitempty" yaml:"target_pips,omitempty"`
}

// PriceStep represents a price update in the simulation
type PriceStep struct {
	Bid   float64 `json:"bid" yaml:"bid"`
	Ask   float64 `json:"ask" yaml:"ask"`
	Delay string  `json:"delay" yaml:"delay"` // e.g., "1h", "30m", "1s"
}

// ParseDuration converts the delay string to time.Duration
func (ps PriceStep) ParseDuration() (time.Duration, error) {
	if ps.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(ps.Delay)
}

// env holds the PAPERTRADER_* overrides. Empty values leave the file
// setting alone.
type env struct {
	AccountID   string  `envconfig:"ACCOUNT_ID"`
	Currency    string  `envconfig:"CURRENCY"`
	Balance     float64 `envconfig:"BALANCE"`
	JournalType string  `envconfig:"JOURNAL_TYPE"`
	DBPath      string  `envconfig:"DB_PATH"`
	ParquetFile string  `envconfig:"PARQUET_FILE"`
	LogLevel    string  `envconfig:"LOG_LEVEL"`
	LogFormat   string  `envconfig:"LOG_FORMAT"`
	Listen      string  `envconfig:"LISTEN"`
}

// Load reads path, then any .env files (the working directory's .env when
// none are named), then PAPERTRADER_* environment overrides, and validates
// the result. Missing .env files are not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML) without
// looking at the environment.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Account.ID, e.AccountID)
	set(&c.Account.Currency, e.Currency)
	set(&c.Journal.Type, e.JournalType)
	set(&c.Journal.DBPath, e.DBPath)
	set(&c.Journal.ParquetFile, e.ParquetFile)
	set(&c.Log.Level, e.LogLevel)
	set(&c.Log.Format, e.LogFormat)
	set(&c.Serve.Listen, e.Listen)
	if e.Balance != 0 {
		c.Account.Balance = e.Balance
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Registry returns the built-in instruments overlaid with the configured
// markets.
func (c *Config) Registry() (*market.Registry, error) {
	r := market.DefaultRegistry()
	for _, m := range c.Markets {
		if err := r.Set(m); err != nil {
			return nil, fmt.Errorf("markets: %w", err)
		}
	}
	return r, nil
}

// ParseDirection parses simulation.order.direction.
func (o OrderConfig) ParseDirection() (broker.Direction, error) {
	return broker.ParseDirection(o.Direction)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.History.Capacity < 0 {
		return fmt.Errorf("history.capacity must not be negative")
	}

	reg, err := c.Registry()
	if err != nil {
		return err
	}
	if err := c.validateSimulation(reg); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.HistoryFile == "" || c.Journal.MarketFile == "" {
			return fmt.Errorf("journal history_file and market_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

func (c *Config) validateSimulation(reg *market.Registry) error {
	s := c.Simulation
	if s.Symbol == "" {
		return fmt.Errorf("simulation.symbol is required")
	}
	if _, err := reg.Market(s.Symbol); err != nil {
		return fmt.Errorf("unknown instrument: %s", s.Symbol)
	}
	if s.InitialBid <= 0 || s.InitialAsk <= 0 {
		return fmt.Errorf("simulation initial prices must be positive")
	}
	if s.InitialAsk <= s.InitialBid {
		return fmt.Errorf("simulation initial_ask must be greater than initial_bid")
	}
	if _, err := s.Order.ParseDirection(); err != nil {
		return fmt.Errorf("simulation.order.direction: %w", err)
	}
	switch {
	case s.Order.RiskPct < 0 || s.Order.RiskPct > 1:
		return fmt.Errorf("simulation.order.risk_pct must be between 0 and 1")
	case s.Order.RiskPct > 0 && s.Order.StopPips == 0:
		return fmt.Errorf("simulation.order.risk_pct requires stop_pips")
	case s.Order.RiskPct == 0 && s.Order.Quantity <= 0:
		return fmt.Errorf("simulation.order.quantity must be positive")
	}
	if s.Order.Leverage < 0 {
		return fmt.Errorf("simulation.order.leverage must not be negative")
	}
	if s.Order.StopPips < 0 || s.Order.TargetPips < 0 {
		return fmt.Errorf("simulation.order stop_pips and target_pips must not be negative")
	}
	for i, step := range s.PriceSteps {
		if step.Bid <= 0 || step.Ask < step.Bid {
			return fmt.Errorf("simulation.price_steps[%d]: bid must be positive and ask >= bid", i)
		}
		if _, err := step.ParseDuration(); err != nil {
			return fmt.Errorf("simulation.price_steps[%d]: %w", i, err)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  100000,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Serve: ServeConfig{
			Listen: ":8080",
		},
		Simulation: SimulationConfig{
			Symbol:     "EUR_USD",
			InitialBid: 1.0849,
			InitialAsk: 1.0851,
			Order: OrderConfig{
				Direction:  "long",
				Quantity:   1,
				Leverage:   1,
				StopPips:   20,
				TargetPips: 40,
			},
		},
	}
}
