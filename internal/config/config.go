package config

import (
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Billing  BillingConfig
	Provider ProviderConfig
	Admin    AdminConfig
	Callback CallbackRateConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// BillingConfig carries the reconciliation policy knobs that the source
// system left implicit: overpayment tolerance, cash change-giving, which
// order statuses are billable, and how long a mobile-money push may stay
// pending before the sweep fails it.
type BillingConfig struct {
	TaxRate              decimal.Decimal
	Tolerance            decimal.Decimal
	CashOverpayment      bool
	AllowUnservedBilling bool
	PendingTimeout       time.Duration
	SweepInterval        time.Duration
}

type ProviderConfig struct {
	BaseURL        string
	CallbackSecret string
	PushTimeout    time.Duration
	MaxRetries     uint64
}

// AdminConfig seeds the initial admin account on startup, replacing the
// source system's ad hoc admin-creation script.
type AdminConfig struct {
	Username string
	Password string
}

type CallbackRateConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from .env and environment variables with defaults.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	viper.SetDefault("APP_NAME", "hotel-pms-backend")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "hotel_pms")
	viper.SetDefault("DB_USER", "hotel_pms_user")
	viper.SetDefault("DB_PASSWORD", "hotel_pms_password")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_ACCESS_TTL_MINUTES", 15)
	viper.SetDefault("JWT_REFRESH_TTL_HOURS", 168)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")
	viper.SetDefault("BILLING_TAX_RATE", "0.16")
	viper.SetDefault("BILLING_TOLERANCE", "0.01")
	viper.SetDefault("BILLING_CASH_OVERPAYMENT", true)
	viper.SetDefault("BILLING_ALLOW_UNSERVED", false)
	viper.SetDefault("BILLING_PENDING_TIMEOUT_SECONDS", 300)
	viper.SetDefault("BILLING_SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("PROVIDER_BASE_URL", "https://sandbox.payment-provider.example")
	viper.SetDefault("PROVIDER_CALLBACK_SECRET", "change-this-callback-secret")
	viper.SetDefault("PROVIDER_PUSH_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PROVIDER_MAX_RETRIES", 3)
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_PASSWORD", "")
	viper.SetDefault("CALLBACK_RATE_RPS", 10.0)
	viper.SetDefault("CALLBACK_RATE_BURST", 20)

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("JWT_SECRET"),
			AccessTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TTL_MINUTES")) * time.Minute,
			RefreshTTL: time.Duration(viper.GetInt("JWT_REFRESH_TTL_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ","),
		},
		Billing: BillingConfig{
			TaxRate:              mustDecimal(viper.GetString("BILLING_TAX_RATE"), "0.16"),
			Tolerance:            mustDecimal(viper.GetString("BILLING_TOLERANCE"), "0.01"),
			CashOverpayment:      viper.GetBool("BILLING_CASH_OVERPAYMENT"),
			AllowUnservedBilling: viper.GetBool("BILLING_ALLOW_UNSERVED"),
			PendingTimeout:       time.Duration(viper.GetInt("BILLING_PENDING_TIMEOUT_SECONDS")) * time.Second,
			SweepInterval:        time.Duration(viper.GetInt("BILLING_SWEEP_INTERVAL_SECONDS")) * time.Second,
		},
		Provider: ProviderConfig{
			BaseURL:        viper.GetString("PROVIDER_BASE_URL"),
			CallbackSecret: viper.GetString("PROVIDER_CALLBACK_SECRET"),
			PushTimeout:    time.Duration(viper.GetInt("PROVIDER_PUSH_TIMEOUT_SECONDS")) * time.Second,
			MaxRetries:     viper.GetUint64("PROVIDER_MAX_RETRIES"),
		},
		Admin: AdminConfig{
			Username: viper.GetString("ADMIN_USERNAME"),
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
		Callback: CallbackRateConfig{
			RequestsPerSecond: viper.GetFloat64("CALLBACK_RATE_RPS"),
			Burst:             viper.GetInt("CALLBACK_RATE_BURST"),
		},
	}
}

func mustDecimal(s, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Printf("Warning: invalid decimal %q, using %s", s, fallback)
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}
