package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Otel     OtelConfig     `mapstructure:"otel"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
}

type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	Mode      string  `mapstructure:"mode"` // debug / release
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres / sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type OtelConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// PricingConfig 定价相关费率（均为业务配置，默认值对应当前商城政策）
type PricingConfig struct {
	TaxRate          float64 `mapstructure:"tax_rate"`
	CheckoutCoinRate float64 `mapstructure:"checkout_coin_rate"` // 结算时 1 金币抵扣的货币额
	RedeemCoinRate   float64 `mapstructure:"redeem_coin_rate"`   // 钱包兑换券时 1 金币折算的货币额
	FreeShippingMin  float64 `mapstructure:"free_shipping_min"`
	ShippingStandard float64 `mapstructure:"shipping_standard"`
	ShippingExpress  float64 `mapstructure:"shipping_express"`
	WrapBasic        float64 `mapstructure:"wrap_basic"`
	WrapPremium      float64 `mapstructure:"wrap_premium"`
	WrapLuxury       float64 `mapstructure:"wrap_luxury"`
	EarnDivisor      float64 `mapstructure:"earn_divisor"` // 每消费 N 货币获得 1 金币
}

type WalletConfig struct {
	CoinTTLDays      int `mapstructure:"coin_ttl_days"`
	RedeemCouponDays int `mapstructure:"redeem_coupon_days"`
}

// Load 读取配置文件并套用环境变量覆盖（前缀 MALL_）
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺失时允许纯默认值 + 环境变量启动
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "perfume_mall.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("log.level", "info")
	v.SetDefault("pricing.tax_rate", 0.05)
	v.SetDefault("pricing.checkout_coin_rate", 1.0)
	v.SetDefault("pricing.redeem_coin_rate", 0.1)
	v.SetDefault("pricing.free_shipping_min", 200)
	v.SetDefault("pricing.shipping_standard", 15)
	v.SetDefault("pricing.shipping_express", 25)
	v.SetDefault("pricing.wrap_basic", 10)
	v.SetDefault("pricing.wrap_premium", 20)
	v.SetDefault("pricing.wrap_luxury", 35)
	v.SetDefault("pricing.earn_divisor", 10)
	v.SetDefault("wallet.coin_ttl_days", 90)
	v.SetDefault("wallet.redeem_coupon_days", 30)
}
