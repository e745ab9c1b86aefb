package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"mps-price-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	TokenSymbol string `mapstructure:"token_symbol"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoopConfig governs the two polling cadences.
type LoopConfig struct {
	PriceInterval time.Duration `mapstructure:"price_interval"`
	IdleDelay     time.Duration `mapstructure:"idle_delay"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// EthereumConfig covers on-chain data access.
type EthereumConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	RouterAddress   string        `mapstructure:"router_address"`
	TokenInAddress  string        `mapstructure:"token_in_address"`
	TokenOutAddress string        `mapstructure:"token_out_address"`
	AmountIn        int64         `mapstructure:"amount_in"`
	OutDecimals     int32         `mapstructure:"out_decimals"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// TelegramConfig 描述 Telegram 机器人参数。
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MPSWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mpswatcher")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.token_symbol", "MPS")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("loop.price_interval", "10s")
	v.SetDefault("loop.idle_delay", "1s")
	v.SetDefault("loop.startup_delay", "0s")

	// Reference deployment: MPS priced in WXDAI through the SushiSwap router
	// on Gnosis Chain. MPS has 0 decimals, so amount_in 1 is one whole token.
	v.SetDefault("ethereum.rpc_url", "https://rpc.gnosischain.com")
	v.SetDefault("ethereum.router_address", "0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506")
	v.SetDefault("ethereum.token_in_address", "0xfa57aa7beed63d03aaf85ffd1753f5f6242588fb")
	v.SetDefault("ethereum.token_out_address", "0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d")
	v.SetDefault("ethereum.amount_in", int64(1))
	v.SetDefault("ethereum.out_decimals", int32(18))
	v.SetDefault("ethereum.request_timeout", "10s")

	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.request_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Loop.PriceInterval <= 0 {
		return fmt.Errorf("loop.price_interval must be greater than zero")
	}
	if c.Loop.IdleDelay < 0 {
		return fmt.Errorf("loop.idle_delay cannot be negative")
	}
	if c.Ethereum.AmountIn <= 0 {
		return fmt.Errorf("ethereum.amount_in must be greater than zero")
	}
	if c.Ethereum.OutDecimals < 0 {
		return fmt.Errorf("ethereum.out_decimals cannot be negative")
	}
	return nil
}

// ValidateTelegram ensures chat credentials are present for commands that
// talk to the bot API.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token 必须配置")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id 必须配置")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
