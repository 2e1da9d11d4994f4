package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr string `yaml:"address" env:"HTTP_ADDR" env-default:":8080"`
}

type Database struct {
	Host            string        `yaml:"PG_HOST" env:"PG_HOST" env-default:"localhost"`
	Port            string        `yaml:"PG_PORT" env:"PG_PORT" env-default:"5432"`
	User            string        `yaml:"PG_USER" env:"PG_USER" env-required:"true"`
	Password        string        `yaml:"PG_PASSWORD" env:"PG_PASSWORD" env-required:"true"`
	Name            string        `yaml:"PG_DBNAME" env:"PG_DBNAME" env-required:"true"`
	SSLMode         string        `yaml:"PG_SSLMODE" env:"PG_SSLMODE" env-default:"require"`
	MaxOpenConns    int           `yaml:"PG_MAX_OPEN_CONNS" env:"PG_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"PG_MAX_IDLE_CONNS" env:"PG_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"PG_CONN_MAX_LIFETIME" env:"PG_CONN_MAX_LIFETIME" env-default:"30m"`
	MigrationsPath  string        `yaml:"PG_MIGRATIONS_PATH" env:"PG_MIGRATIONS_PATH" env-default:"./migrations"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"REDIS_PORT" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER" env-default:""`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

type Security struct {
	JWTKey string `yaml:"JWT_KEY" env:"JWT_KEY" env-required:"true"`
}

// Gateway configures the external redirect-payment gateway.
type Gateway struct {
	MerchantID  string        `yaml:"GATEWAY_MERCHANT_ID" env:"GATEWAY_MERCHANT_ID" env-required:"true"`
	BaseURL     string        `yaml:"GATEWAY_BASE_URL" env:"GATEWAY_BASE_URL" env-required:"true"`
	CallbackURL string        `yaml:"GATEWAY_CALLBACK_URL" env:"GATEWAY_CALLBACK_URL" env-required:"true"`
	Timeout     time.Duration `yaml:"GATEWAY_TIMEOUT" env:"GATEWAY_TIMEOUT" env-default:"10s"`
}

// Shipping holds the two tariff schedules. Rates are in the smallest currency
// unit; the tier-1 rate covers the first kilogram.
type Shipping struct {
	StandardTier1   int64  `yaml:"SHIPPING_STANDARD_TIER1" env:"SHIPPING_STANDARD_TIER1" env-default:"450000"`
	StandardExtraKg int64  `yaml:"SHIPPING_STANDARD_EXTRA_KG" env:"SHIPPING_STANDARD_EXTRA_KG" env-default:"200000"`
	CourierTier1    int64  `yaml:"SHIPPING_COURIER_TIER1" env:"SHIPPING_COURIER_TIER1" env-default:"350000"`
	CourierExtraKg  int64  `yaml:"SHIPPING_COURIER_EXTRA_KG" env:"SHIPPING_COURIER_EXTRA_KG" env-default:"100000"`
	CourierCity     string `yaml:"SHIPPING_COURIER_CITY" env:"SHIPPING_COURIER_CITY" env-default:"Tehran"`
}

type Checkout struct {
	PendingTTL    time.Duration `yaml:"CHECKOUT_PENDING_TTL" env:"CHECKOUT_PENDING_TTL" env-default:"24h"`
	SweepInterval time.Duration `yaml:"CHECKOUT_SWEEP_INTERVAL" env:"CHECKOUT_SWEEP_INTERVAL" env-default:"1h"`
}

type SendGrid struct {
	APIKey    string `yaml:"SENDGRID_API_KEY" env:"SENDGRID_API_KEY" env-default:""`
	FromEmail string `yaml:"SENDGRID_FROM_EMAIL" env:"SENDGRID_FROM_EMAIL" env-default:"orders@kilnandclay.example"`
	FromName  string `yaml:"SENDGRID_FROM_NAME" env:"SENDGRID_FROM_NAME" env-default:"Kiln & Clay"`
}

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-required:"true"`
	HTTPServer   `yaml:"http_server"`
	Database     Database     `yaml:"database"`
	RedisConnect RedisConnect `yaml:"redis"`
	Security     Security     `yaml:"security"`
	Gateway      Gateway      `yaml:"gateway"`
	Shipping     Shipping     `yaml:"shipping"`
	Checkout     Checkout     `yaml:"checkout"`
	SendGrid     SendGrid     `yaml:"sendgrid"`
}

func MustLoad() *Config {

	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {

		flags := flag.String("config", "", "gets the config flag value")

		flag.Parse()

		configPath = *flags

		if configPath == "" {
			log.Fatal("Config path is not set")
		}

	}

	cfg, err := LoadConfigFromPath(configPath)

	if err != nil {
		log.Fatalf("can not read config file: %s", err.Error())
	}

	return cfg
}

func LoadConfigFromPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (d *Database) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (r *RedisConnect) GetDSN() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s/%d",
		r.Username, r.Password, r.Host, r.Port, r.DB)
}
