/**
 * @description
 * This package handles configuration management for the settlement service.
 * It uses the Viper library to read configuration from environment variables
 * (plus an optional .env file), providing a centralized place for every
 * tunable the service carries.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the settlement service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	RedisURL            string `mapstructure:"REDIS_URL"`
	RedisReplayPrefix   string `mapstructure:"REDIS_REPLAY_PREFIX"`
	WebhookReplayTTLMin int    `mapstructure:"WEBHOOK_REPLAY_TTL_MINUTES"`

	GatewayWebhookSecret string `mapstructure:"GATEWAY_WEBHOOK_SECRET"`

	MailerBaseURL        string `mapstructure:"MAILER_BASE_URL"`
	MailerAPIKey         string `mapstructure:"MAILER_API_KEY"`
	NotifyTimeoutSeconds int    `mapstructure:"NOTIFY_TIMEOUT_SECONDS"`

	AdminJWKSURL   string `mapstructure:"ADMIN_JWKS_URL"`
	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`

	// TicketNetHaircutPercent is the gateway reconciliation haircut applied
	// to ticket/donation net revenue before the brand's own percentage fee.
	TicketNetHaircutPercent float64 `mapstructure:"TICKET_NET_HAIRCUT_PERCENT"`

	EarningSettlementSchedule string `mapstructure:"EARNING_SETTLEMENT_SCHEDULE"`
	StaleOrderSweepSchedule   string `mapstructure:"STALE_ORDER_SWEEP_SCHEDULE"`
	StaleOrderTTLHours        int    `mapstructure:"STALE_ORDER_TTL_HOURS"`
	SweepBatchSize            int    `mapstructure:"SWEEP_BATCH_SIZE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_REPLAY_PREFIX", "settlement:webhook_events")
	viper.SetDefault("WEBHOOK_REPLAY_TTL_MINUTES", 60)
	viper.SetDefault("NOTIFY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("TICKET_NET_HAIRCUT_PERCENT", 0.5)
	viper.SetDefault("EARNING_SETTLEMENT_SCHEDULE", "*/15 * * * *")
	viper.SetDefault("STALE_ORDER_SWEEP_SCHEDULE", "10 3 * * *")
	viper.SetDefault("STALE_ORDER_TTL_HOURS", 0)
	viper.SetDefault("SWEEP_BATCH_SIZE", 100)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_REPLAY_PREFIX")
	_ = viper.BindEnv("WEBHOOK_REPLAY_TTL_MINUTES")
	_ = viper.BindEnv("GATEWAY_WEBHOOK_SECRET")
	_ = viper.BindEnv("MAILER_BASE_URL")
	_ = viper.BindEnv("MAILER_API_KEY")
	_ = viper.BindEnv("NOTIFY_TIMEOUT_SECONDS")
	_ = viper.BindEnv("ADMIN_JWKS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("TICKET_NET_HAIRCUT_PERCENT")
	_ = viper.BindEnv("EARNING_SETTLEMENT_SCHEDULE")
	_ = viper.BindEnv("STALE_ORDER_SWEEP_SCHEDULE")
	_ = viper.BindEnv("STALE_ORDER_TTL_HOURS")
	_ = viper.BindEnv("SWEEP_BATCH_SIZE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.GatewayWebhookSecret = strings.TrimSpace(config.GatewayWebhookSecret)
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)

	if config.TicketNetHaircutPercent < 0 {
		log.Printf("level=warn component=config msg=\"negative net haircut configured; coercing to zero\" percent=%f", config.TicketNetHaircutPercent)
		config.TicketNetHaircutPercent = 0
	}
	if config.TicketNetHaircutPercent > 100 {
		log.Printf("level=warn component=config msg=\"net haircut too high; capping at 100\" percent=%f", config.TicketNetHaircutPercent)
		config.TicketNetHaircutPercent = 100
	}

	if config.WebhookReplayTTLMin <= 0 {
		config.WebhookReplayTTLMin = 60
	}
	if config.NotifyTimeoutSeconds <= 0 {
		config.NotifyTimeoutSeconds = 10
	}
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = 100
	}
	if config.StaleOrderTTLHours < 0 {
		config.StaleOrderTTLHours = 0
	}

	return
}
