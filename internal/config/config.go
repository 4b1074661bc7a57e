package config

import (
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Stripe struct {
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"stripe"`
	Admin struct {
		Email      string `yaml:"email"`
		Password   string `yaml:"password"`
		SigningKey string `yaml:"signing_key"`
	} `yaml:"admin"`
	Ward WardConfig `yaml:"ward"`
}

// WardConfig carries the seasonal settings that vary per ward: what the
// mulch costs, which neighborhoods are served and whether the order form
// is open at all.
type WardConfig struct {
	Name            string   `yaml:"name"`
	ContactEmail    string   `yaml:"contact_email"`
	Neighborhoods   []string `yaml:"neighborhoods"`
	PriceDelivery   int64    `yaml:"price_delivery"` // cents per bag
	PriceSpread     int64    `yaml:"price_spread"`   // cents per bag
	DeliveryDate1   string   `yaml:"delivery_date_1"`
	DeliveryDate2   string   `yaml:"delivery_date_2"`
	AcceptingOrders bool     `yaml:"accepting_orders"`
}

func (w WardConfig) KnownNeighborhood(name string) bool {
	for _, n := range w.Neighborhoods {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}

	// Secrets come from the environment when set, so the yaml file can be
	// committed without them.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("JWT_SIGNING_KEY"); v != "" {
		cfg.Admin.SigningKey = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.Admin.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	return cfg
}
