package config

import (
	"time"

	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	CRDBDSN           string
	MongoURI          string
	RedisAddr         string
	RabbitURL         string
	RazorpayBaseURL   string
	RazorpayKeyID     string
	RazorpayKeySecret string
	MsgProviderURL    string
	MsgProviderToken  string
	MsgSenderID       string
	IntentTTL         time.Duration
	NotifyTimeout     time.Duration
	OTLPEndpoint      string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	intentTTL, _ := time.ParseDuration(os.Getenv("INTENT_TTL"))
	if intentTTL == 0 {
		intentTTL = 30 * time.Minute
	}
	notifyTimeout, _ := time.ParseDuration(os.Getenv("NOTIFY_TIMEOUT"))
	if notifyTimeout == 0 {
		notifyTimeout = 10 * time.Second
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("RAZORPAY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}

	return &Config{
		HTTPAddr:          addr,
		CRDBDSN:           os.Getenv("CRDB_DSN"),
		MongoURI:          os.Getenv("MONGO_URI"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RabbitURL:         os.Getenv("RABBIT_URL"),
		RazorpayBaseURL:   baseURL,
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		MsgProviderURL:    os.Getenv("MSG_PROVIDER_URL"),
		MsgProviderToken:  os.Getenv("MSG_PROVIDER_TOKEN"),
		MsgSenderID:       os.Getenv("MSG_SENDER_ID"),
		IntentTTL:         intentTTL,
		NotifyTimeout:     notifyTimeout,
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
