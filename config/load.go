package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration for one strategy instance.
type AppConfig struct {
	Env      string        `yaml:"env"`
	Strategy StrategyConfig `yaml:"strategy"`
	Limits   LimitsConfig  `yaml:"limits"`
	Gateway  GatewayConfig `yaml:"gateway"`
	Loops    LoopsConfig   `yaml:"loops"`
	Logging  LoggingConfig `yaml:"logging"`
}

// StrategyConfig 选定一条链：标的、到期日与报价参数。
type StrategyConfig struct {
	Underlying   string    `yaml:"underlying"`
	Expiry       time.Time `yaml:"expiry"`
	RiskFreeRate float64   `yaml:"riskFreeRate"`
	OrderSize    float64   `yaml:"orderSize"` // 每张委托的数量
}

// LimitsConfig 组合层风控阈值；应用于绝对值，0 表示关闭该项。
type LimitsConfig struct {
	Delta        float64 `yaml:"delta"`
	Gamma        float64 `yaml:"gamma"`
	Vega         float64 `yaml:"vega"`
	OpenPosition float64 `yaml:"openPosition"` // 单合约净持仓上限
}

type GatewayConfig struct {
	APIKey    string  `yaml:"apiKey"`
	APISecret string  `yaml:"apiSecret"`
	BaseURL   string  `yaml:"baseURL"`
	WSURL     string  `yaml:"wsURL"`     // 留空则关闭 WS 行情
	RestRate  float64 `yaml:"restRate"`  // REST 限流：每秒令牌数
	RestBurst int     `yaml:"restBurst"` // REST 限流：突发令牌数
}

// LoopsConfig 各控制循环的节拍（毫秒），0 取默认值。
type LoopsConfig struct {
	MarketDataMs int `yaml:"marketDataMs"`
	FillsMs      int `yaml:"fillsMs"`
	QuotingMs    int `yaml:"quotingMs"`
}

// LoggingConfig 日志配置，映射到 infrastructure/logger。
type LoggingConfig struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	Outputs    []string `yaml:"outputs"`
	OutputFile string   `yaml:"output_file"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("OMM_GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("OMM_GATEWAY_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present; failures here are fatal
// at startup, before any loop begins.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Strategy.Underlying == "" {
		return errors.New("strategy.underlying is required")
	}
	if cfg.Strategy.Expiry.IsZero() {
		return errors.New("strategy.expiry is required")
	}
	if cfg.Strategy.OrderSize <= 0 {
		return errors.New("strategy.orderSize must be > 0")
	}
	if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" {
		return errors.New("gateway.apiKey/apiSecret is required (or env overrides)")
	}
	if cfg.Gateway.BaseURL == "" {
		return errors.New("gateway.baseURL is required")
	}
	if cfg.Limits.Delta < 0 || cfg.Limits.Gamma < 0 || cfg.Limits.Vega < 0 {
		return errors.New("limits must be >= 0")
	}
	if cfg.Limits.OpenPosition < 0 {
		return errors.New("limits.openPosition must be >= 0")
	}
	if cfg.Loops.MarketDataMs < 0 || cfg.Loops.FillsMs < 0 || cfg.Loops.QuotingMs < 0 {
		return errors.New("loop intervals must be >= 0")
	}
	return nil
}
