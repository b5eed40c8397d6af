package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Gamma GammaConfig `mapstructure:"gamma"`
	Clob  ClobConfig  `mapstructure:"clob"`

	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Estimator  EstimatorConfig  `mapstructure:"estimator"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	IngestSpec  string `mapstructure:"ingest"`
	DecideSpec  string `mapstructure:"decide"`
	RefreshSpec string `mapstructure:"refresh"`
	SettleSpec  string `mapstructure:"settle"`
	// DecideOnStart triggers one decision cycle shortly after boot.
	DecideOnStart bool `mapstructure:"decide_on_start"`
}

type GammaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClobConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	Categories         []string `mapstructure:"categories"`
	MarketsPerCategory int      `mapstructure:"markets_per_category"`
	MaxMarketDays      int      `mapstructure:"max_market_days"`
	MinVolume          float64  `mapstructure:"min_volume"`
}

type PolicyConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MinEntryPrice       float64 `mapstructure:"min_entry_price"`
	MaxEntryPrice       float64 `mapstructure:"max_entry_price"`
	MinExpectedValue    float64 `mapstructure:"min_expected_value"`
	MinEdge             float64 `mapstructure:"min_edge"`
	StakeAmount         int64   `mapstructure:"stake_amount"`
	StakesPerCategory   int     `mapstructure:"stakes_per_category"`
	MaxMarketsToScan    int     `mapstructure:"max_markets_to_scan"`
}

type RefreshConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	BatchPause   time.Duration `mapstructure:"batch_pause"`
	PriceTimeout time.Duration `mapstructure:"price_timeout"`
}

type SettlementConfig struct {
	OutcomeTimeout time.Duration `mapstructure:"outcome_timeout"`
}

type LedgerConfig struct {
	SignupGrant int64 `mapstructure:"signup_grant"`
	MinStake    int64 `mapstructure:"min_stake"`
	MaxStake    int64 `mapstructure:"max_stake"`
}

type EstimatorConfig struct {
	APIKeyEnv string `mapstructure:"api_key_env"`
	Model     string `mapstructure:"model"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	NonceTTL  time.Duration `mapstructure:"nonce_ttl"`
	AdminKey  string        `mapstructure:"admin_key"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.ingest", "@every 10m")
	v.SetDefault("cron.decide", "0 0 */2 * * *")
	v.SetDefault("cron.refresh", "0 */5 * * * *")
	v.SetDefault("cron.settle", "0 */30 * * * *")
	v.SetDefault("cron.decide_on_start", false)

	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "15s")
	v.SetDefault("clob.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob.timeout", "10s")

	v.SetDefault("catalog.categories", []string{"politics", "crypto"})
	v.SetDefault("catalog.markets_per_category", 5)
	v.SetDefault("catalog.max_market_days", 7)
	v.SetDefault("catalog.min_volume", 1000)

	v.SetDefault("policy.confidence_threshold", 0.75)
	v.SetDefault("policy.min_entry_price", 0.10)
	v.SetDefault("policy.max_entry_price", 0.85)
	v.SetDefault("policy.min_expected_value", 0)
	v.SetDefault("policy.min_edge", 0.05)
	v.SetDefault("policy.stake_amount", 100)
	v.SetDefault("policy.stakes_per_category", 2)
	v.SetDefault("policy.max_markets_to_scan", 1000)

	v.SetDefault("refresh.batch_size", 10)
	v.SetDefault("refresh.batch_pause", "100ms")
	v.SetDefault("refresh.price_timeout", "3s")

	v.SetDefault("settlement.outcome_timeout", "10s")

	v.SetDefault("ledger.signup_grant", 1000)
	v.SetDefault("ledger.min_stake", 10)
	v.SetDefault("ledger.max_stake", 10000)

	v.SetDefault("estimator.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("estimator.model", "gpt-4o")

	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.nonce_ttl", "5m")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; env overrides and defaults still apply.
		if _, statErr := os.Stat(path); statErr == nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
