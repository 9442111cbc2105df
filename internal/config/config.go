package config

import "github.com/caarlos0/env/v11"

type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":3003"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
}

type StripeConfig struct {
	APIKey        string `env:"STRIPE_API_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	SuccessURL    string `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:3003/v1/payments/success"`
	CancelURL     string `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:3003/v1/payments/cancel"`
	// UseMock swaps in the mock adapter; the default keeps local
	// environments working without provider credentials.
	UseMock bool `env:"STRIPE_USE_MOCK" envDefault:"true"`
}

type OrdersConfig struct {
	BaseURL string `env:"ORDERS_SERVICE_URL" envDefault:"http://localhost:3002"`
}

type TracingConfig struct {
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

type Common struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"payments-service"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type Config struct {
	Common  Common
	HTTP    HTTPConfig
	Kafka   KafkaConfig
	Stripe  StripeConfig
	Orders  OrdersConfig
	Tracing TracingConfig
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
