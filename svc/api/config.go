package api

import "time"

// Config holds the HTTP surface settings.
type Config struct {
	AdminToken         string        `env:"API_ADMIN_TOKEN,required"`
	SweepSecret        string        `env:"API_SWEEP_SECRET"`
	WebhookRateLimit   int           `env:"API_WEBHOOK_RATE_LIMIT" envDefault:"120"`
	AdminRateLimit     int           `env:"API_ADMIN_RATE_LIMIT" envDefault:"300"`
	RateWindow         time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	MaxBodyBytes       int64         `env:"API_MAX_BODY_BYTES" envDefault:"1048576"`
	CheckoutSuccessURL string        `env:"API_CHECKOUT_SUCCESS_URL"`
}

func (c Config) withDefaults() Config {
	if c.WebhookRateLimit <= 0 {
		c.WebhookRateLimit = 120
	}
	if c.AdminRateLimit <= 0 {
		c.AdminRateLimit = 300
	}
	if c.RateWindow <= 0 {
		c.RateWindow = time.Minute
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	return c
}
