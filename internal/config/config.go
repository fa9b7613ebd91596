// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable named in its envconfig tag.
type Config struct {
	Env  string `envconfig:"APP_ENV" required:"true"`  // dev, test or prod
	Port string `envconfig:"APP_PORT" required:"true"` // HTTP port to listen on

	DBUser string `envconfig:"DB_USER" required:"true"`
	DBPass string `envconfig:"DB_PASS"` // empty allowed
	DBHost string `envconfig:"DB_HOST" required:"true"`
	DBPort string `envconfig:"DB_PORT" required:"true"`
	DBName string `envconfig:"DB_NAME" required:"true"`

	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLMin int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"60"`
	BcryptCost   int    `envconfig:"BCRYPT_COST" default:"12"`

	// TicketSecret signs admission tickets.  When unset, JWT_SECRET is used;
	// the ticket type claim keeps the two kinds of token apart.
	TicketSecret       string        `envconfig:"QR_TICKET_SECRET"`
	TicketTTL          time.Duration `envconfig:"TICKET_TTL" default:"2400h"`
	CheckInOpensBefore time.Duration `envconfig:"CHECKIN_OPENS_BEFORE" default:"20h"`
	CheckInClosesAfter time.Duration `envconfig:"CHECKIN_CLOSES_AFTER" default:"2h"`

	RabbitURL string `envconfig:"RABBITMQ_URL"` // empty disables publishing and the notification worker

	OTPTTL         time.Duration `envconfig:"OTP_TTL" default:"10m"`
	OTPMaxAttempts int           `envconfig:"OTP_MAX_ATTEMPTS" default:"5"`

	NotificationLog string `envconfig:"NOTIFICATION_LOG" default:"logs/notifications.log"`
}

// Load reads Config from the environment.  Missing required variables and
// unparsable values are reported as an error.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	if c.TicketSecret == "" {
		c.TicketSecret = c.JWTSecret
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return Config{}, fmt.Errorf("config: BCRYPT_COST %d out of range 4..31", c.BcryptCost)
	}
	if c.CheckInOpensBefore < 0 || c.CheckInClosesAfter < 0 {
		return Config{}, fmt.Errorf("config: check-in window durations must not be negative")
	}
	return c, nil
}

// AccessTTL returns the access token lifetime.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMin) * time.Minute
}

// IsProduction reports whether the service runs with APP_ENV=prod.
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}
