package config

type PaymentConfig struct {
	DefaultProvider string        `yaml:"default_provider"`
	Stripe          *StripeConfig `yaml:"stripe"`
	Currency        string        `yaml:"currency"`
	CommissionRate  float64       `yaml:"commission_rate"`
}

type StripeConfig struct {
	PublishableKey string `yaml:"publishable_key"`
	SecretKey      string `yaml:"secret_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
}

func loadPaymentConfig() *PaymentConfig {
	return &PaymentConfig{
		DefaultProvider: getEnv("PAYMENT_DEFAULT_PROVIDER", "stripe"),
		Stripe: &StripeConfig{
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Currency:       getEnv("PAYMENT_CURRENCY", "USD"),
		CommissionRate: getEnvAsFloat64("PAYMENT_COMMISSION_RATE", 0.05),
	}
}
