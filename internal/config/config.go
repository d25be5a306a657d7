// Package config loads the dashboard configuration from YAML, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Source providers.
const (
	ProviderYahoo     = "yahoo"
	ProviderEODHD     = "eodhd"
	ProviderFinanceGo = "financego"
)

// Config holds all application configuration.
type Config struct {
	WatchlistPath string   `yaml:"watchlist_path" validate:"required"`
	OutputPath    string   `yaml:"output_path" validate:"required,endswith=.xlsx"`
	LookbackDays  int      `yaml:"lookback_days" validate:"min=1,max=31"`
	AnchorMonths  []int    `yaml:"anchor_months" validate:"min=1,dive,min=1,max=120"`
	Tickers       []string `yaml:"tickers"`
	SheetName     string   `yaml:"sheet_name" validate:"required,max=31"`
	HeaderRows    int      `yaml:"header_rows" validate:"min=0,max=50"`
	ThresholdPct  float64  `yaml:"threshold_pct" validate:"gt=0"`
	Parallelism   int      `yaml:"parallelism" validate:"min=1,max=32"`
	// TolerateFetchErrors turns fetch failures into missing values.
	TolerateFetchErrors bool `yaml:"tolerate_fetch_errors"`

	Source   Source   `yaml:"source"`
	Schedule Schedule `yaml:"schedule"`
	Telegram Telegram `yaml:"telegram"`
	Log      Log      `yaml:"log"`
	Proxy    string   `yaml:"proxy" validate:"omitempty,url"`
}

// Source selects and tunes the price provider.
type Source struct {
	Provider        string        `yaml:"provider" validate:"oneof=yahoo eodhd financego"`
	BaseURL         string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey          string        `yaml:"api_key" validate:"required_if=Provider eodhd"`
	DefaultExchange string        `yaml:"default_exchange"`
	RateLimit       float64       `yaml:"rate_limit" validate:"gte=0"`
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Schedule configures watch mode.
type Schedule struct {
	Cron string `yaml:"cron" validate:"required"`
}

// Telegram configures the optional run summary.
type Telegram struct {
	BotToken string `yaml:"bot_token" validate:"required_with=ChatID"`
	ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
}

// Enabled reports whether summaries should be sent.
func (t Telegram) Enabled() bool { return t.BotToken != "" && t.ChatID != "" }

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		WatchlistPath: "momentum.xlsx",
		OutputPath:    "momentum.xlsx",
		LookbackDays:  5,
		AnchorMonths:  []int{1, 3, 6, 12},
		SheetName:     "Stock Momentum",
		HeaderRows:    2,
		ThresholdPct:  10,
		Parallelism:   1,
		Source: Source{
			Provider:        ProviderYahoo,
			DefaultExchange: "US",
			RateLimit:       2,
			Timeout:         30 * time.Second,
		},
		Schedule: Schedule{Cron: "0 30 17 * * 1-5"},
		Log:      Log{Level: "info", Format: "console"},
	}
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Load environment variables from .env file
	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("DASHBOARD_WATCHLIST"); v != "" {
		c.WatchlistPath = v
	}
	if v := os.Getenv("DASHBOARD_OUTPUT"); v != "" {
		c.OutputPath = v
	}
	if v := os.Getenv("DASHBOARD_SOURCE"); v != "" {
		c.Source.Provider = v
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		c.Source.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("DASHBOARD_CRON"); v != "" {
		c.Schedule.Cron = v
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report yaml key names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = describe(fe)
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for i := 1; i < len(c.AnchorMonths); i++ {
		if c.AnchorMonths[i] <= c.AnchorMonths[i-1] {
			return fmt.Errorf("invalid config: anchor_months must be strictly increasing, got %v", c.AnchorMonths)
		}
	}
	if _, err := cronParser.Parse(c.Schedule.Cron); err != nil {
		return fmt.Errorf("invalid config: schedule.cron: %w", err)
	}
	return nil
}

// describe renders one failed rule as "key: reason".
func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:] // drop the root struct name
	}
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return key + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "gte":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", key, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", key, fe.Param())
	case "endswith":
		return fmt.Sprintf("%s must end in %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// String renders the effective configuration as YAML with secrets masked.
func (c *Config) String() string {
	masked := *c
	masked.Source.APIKey = mask(c.Source.APIKey)
	masked.Telegram.BotToken = mask(c.Telegram.BotToken)
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return err.Error()
	}
	return string(out)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
