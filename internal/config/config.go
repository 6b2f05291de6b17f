package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/servabill/servabill/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Server   ServerConfig   `validate:"required"`
	Logging  LoggingConfig  `validate:"required"`
	Postgres PostgresConfig `validate:"required"`
	Billing  BillingConfig  `validate:"required"`
	Stripe   StripeConfig
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level string `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// BillingConfig carries the billing policy knobs consulted by the service
// lifecycle and change-queue logic
type BillingConfig struct {
	// QueueServiceChanges defers client-facing paid changes until their
	// invoice settles. The value in effect at enqueue time is authoritative
	// for that change.
	QueueServiceChanges bool
	ProrationStrategy   types.ProrationStrategy
	DefaultCurrency     string `validate:"required"`
	// InvoiceDaysBeforeRenewal controls how far ahead renewal invoices are cut
	InvoiceDaysBeforeRenewal int
	// AuthorizationHoldMinutes bounds how long a staged payment hold survives
	AuthorizationHoldMinutes int
}

// StripeConfig configures the stripe payment gateway; the gateway is only
// registered when an API key is present
type StripeConfig struct {
	APIKey string
}

// GetDSN returns the postgres connection string
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func NewConfig() (*Configuration, error) {
	// Pick up a local .env before viper reads the environment
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/servabill")

	v.SetEnvPrefix("SERVABILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("billing.queueservicechanges", true)
	v.SetDefault("billing.prorationstrategy", string(types.ProrationStrategyDayBased))
	v.SetDefault("billing.defaultcurrency", "usd")
	v.SetDefault("billing.invoicedaysbeforerenewal", 5)
	v.SetDefault("billing.authorizationholdminutes", 60)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return c.Billing.ProrationStrategy.Validate()
}

// GetDefaultConfig returns a default configuration for local development
// and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "debug"},
		Billing: BillingConfig{
			QueueServiceChanges:      true,
			ProrationStrategy:        types.ProrationStrategyDayBased,
			DefaultCurrency:          "usd",
			InvoiceDaysBeforeRenewal: 5,
			AuthorizationHoldMinutes: 60,
		},
	}
}
