package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rustyeddy/pead/market"
	"github.com/rustyeddy/pead/signal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete backtest configuration
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Session  WindowConfig   `json:"session" yaml:"session"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Symbols  []string       `json:"symbols" yaml:"symbols"`
	Workers  int            `json:"workers" yaml:"workers"` // 0 = NumCPU
}

// StrategyConfig contains the earnings-drift entry and exit rules
type StrategyConfig struct {
	TakeProfit        float64      `json:"take_profit" yaml:"take_profit"`
	StopLoss          float64      `json:"stop_loss" yaml:"stop_loss"`
	HoldingPeriodBars int          `json:"holding_period_bars" yaml:"holding_period_bars"`
	MaxTradeValue     float64      `json:"max_trade_value" yaml:"max_trade_value"`
	EntryThreshold    float64      `json:"entry_threshold" yaml:"entry_threshold"`
	ModelWeight       float64      `json:"model_weight" yaml:"model_weight"`
	AnalystWeight     float64      `json:"analyst_weight" yaml:"analyst_weight"`
	EntryWindow       WindowConfig `json:"entry_window" yaml:"entry_window"`
}

// BrokerConfig contains the simulated account and fill costs
type BrokerConfig struct {
	StartingCash   float64 `json:"starting_cash" yaml:"starting_cash"`
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
}

// WindowConfig is a time-of-day range, "HH:MM" inclusive on both ends
type WindowConfig struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// AnalysisConfig contains performance statistics parameters
type AnalysisConfig struct {
	RiskFreeRate        float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	AnnualizationFactor float64 `json:"annualization_factor" yaml:"annualization_factor"`
}

// DataConfig selects and locates the market and earnings data
type DataConfig struct {
	Source          string `json:"source" yaml:"source"` // "csv" or "postgres"
	Dir             string `json:"dir" yaml:"dir"`
	PriceFile       string `json:"price_file" yaml:"price_file"`       // fmt pattern, %s = symbol
	EarningsFile    string `json:"earnings_file" yaml:"earnings_file"` // fmt pattern, %s = symbol
	PredictionsFile string `json:"predictions_file" yaml:"predictions_file"`
	MaxEarnings     int    `json:"max_earnings" yaml:"max_earnings"`
	PostgresURL     string `json:"postgres_url,omitempty" yaml:"postgres_url,omitempty"`
}

// OutputConfig contains result artifact locations
type OutputConfig struct {
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Weights returns the signal blend weights.
func (s StrategyConfig) Weights() signal.Weights {
	return signal.Weights{Model: s.ModelWeight, Analyst: s.AnalystWeight}
}

// WindowConfigOf renders w in config form.
func WindowConfigOf(w market.Window) WindowConfig {
	return WindowConfig{Start: w.Start.String(), End: w.End.String()}
}

// Window parses the configured range.
func (w WindowConfig) Window() (market.Window, error) {
	start, err := market.ParseClock(w.Start)
	if err != nil {
		return market.Window{}, err
	}
	end, err := market.ParseClock(w.End)
	if err != nil {
		return market.Window{}, err
	}
	if start > end {
		return market.Window{}, fmt.Errorf("window start %s is after end %s", start, end)
	}
	return market.Window{Start: start, End: end}, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Unset fields keep their defaults.
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
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

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	s := c.Strategy
	if s.TakeProfit <= 0 {
		return fmt.Errorf("strategy.take_profit must be positive")
	}
	if s.StopLoss <= 0 {
		return fmt.Errorf("strategy.stop_loss must be positive")
	}
	if s.HoldingPeriodBars <= 0 {
		return fmt.Errorf("strategy.holding_period_bars must be positive")
	}
	if s.MaxTradeValue <= 0 {
		return fmt.Errorf("strategy.max_trade_value must be positive")
	}
	if s.EntryThreshold <= 0 {
		return fmt.Errorf("strategy.entry_threshold must be positive")
	}
	if s.ModelWeight < 0 || s.AnalystWeight < 0 {
		return fmt.Errorf("strategy weights must not be negative")
	}
	if math.Abs(s.ModelWeight+s.AnalystWeight-1) > 1e-9 {
		return fmt.Errorf("strategy.model_weight + strategy.analyst_weight must equal 1")
	}
	if _, err := s.EntryWindow.Window(); err != nil {
		return fmt.Errorf("strategy.entry_window: %w", err)
	}
	if _, err := c.Session.Window(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if c.Broker.StartingCash <= 0 {
		return fmt.Errorf("broker.starting_cash must be positive")
	}
	if c.Broker.CommissionRate < 0 || c.Broker.CommissionRate >= 1 {
		return fmt.Errorf("broker.commission_rate must be in [0, 1)")
	}
	if c.Analysis.AnnualizationFactor <= 0 {
		return fmt.Errorf("analysis.annualization_factor must be positive")
	}
	switch c.Data.Source {
	case "csv":
		if c.Data.PriceFile == "" || c.Data.EarningsFile == "" || c.Data.PredictionsFile == "" {
			return fmt.Errorf("data price_file, earnings_file and predictions_file required for csv source")
		}
	case "postgres":
		if c.Data.PostgresURL == "" {
			return fmt.Errorf("data.postgres_url required for postgres source")
		}
	default:
		return fmt.Errorf("data.source must be 'csv' or 'postgres'")
	}
	if c.Data.MaxEarnings <= 0 {
		return fmt.Errorf("data.max_earnings must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			TakeProfit:        0.015,
			StopLoss:          0.015,
			HoldingPeriodBars: 24,
			MaxTradeValue:     1000,
			EntryThreshold:    0.10,
			ModelWeight:       signal.DefaultWeights.Model,
			AnalystWeight:     signal.DefaultWeights.Analyst,
			EntryWindow:       WindowConfigOf(market.EntryWindow),
		},
		Broker: BrokerConfig{
			StartingCash:   10000,
			CommissionRate: 0.001,
		},
		Session: WindowConfigOf(market.PostAnnouncementSession),
		Analysis: AnalysisConfig{
			RiskFreeRate:        0.03,
			AnnualizationFactor: 252,
		},
		Data: DataConfig{
			Source:          "csv",
			Dir:             ".",
			PriceFile:       "%s_Earnings_Data(5M).csv",
			EarningsFile:    "%s_earnings.csv",
			PredictionsFile: "regression_predictions_new.csv",
			MaxEarnings:     64,
		},
		Output: OutputConfig{
			ResultsDir: "results",
			DBPath:     "results/backtest.sqlite",
		},
		Symbols: []string{"NVDA", "GOOGL", "GS", "GME", "MSFT"},
	}
}
