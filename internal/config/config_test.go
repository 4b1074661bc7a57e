package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
server:
  address: ":4001"
  base_url: "http://localhost:3000"
database:
  driver: "mysql"
  url: "user:pass@tcp(localhost:3306)/mulch?parseTime=true"
stripe:
  secret_key: "sk_from_file"
  webhook_secret: "whsec_from_file"
admin:
  email: "admin@example.com"
  password: "file-password"
  signing_key: "file-key"
ward:
  name: "Test Ward"
  neighborhoods:
    - "Highland Park"
    - "Crossroads"
  price_delivery: 700
  price_spread: 900
  accepting_orders: true
`

func writeSampleConfig(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig(t *testing.T) {
	writeSampleConfig(t)

	cfg := LoadConfig()
	if cfg.Server.Address != ":4001" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Ward.PriceDelivery != 700 || cfg.Ward.PriceSpread != 900 {
		t.Errorf("prices = %d/%d", cfg.Ward.PriceDelivery, cfg.Ward.PriceSpread)
	}
	if !cfg.Ward.AcceptingOrders {
		t.Error("accepting_orders not read")
	}
	if cfg.Stripe.SecretKey != "sk_from_file" {
		t.Errorf("stripe secret = %q", cfg.Stripe.SecretKey)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	writeSampleConfig(t)
	t.Setenv("STRIPE_SECRET_KEY", "sk_from_env")
	t.Setenv("ADMIN_PASSWORD", "env-password")
	t.Setenv("JWT_SIGNING_KEY", "env-key")

	cfg := LoadConfig()
	if cfg.Stripe.SecretKey != "sk_from_env" {
		t.Errorf("stripe secret = %q, env must win", cfg.Stripe.SecretKey)
	}
	if cfg.Admin.Password != "env-password" {
		t.Errorf("admin password = %q, env must win", cfg.Admin.Password)
	}
	if cfg.Admin.SigningKey != "env-key" {
		t.Errorf("signing key = %q, env must win", cfg.Admin.SigningKey)
	}
	// yaml values survive where no env var is set
	if cfg.Admin.Email != "admin@example.com" {
		t.Errorf("admin email = %q", cfg.Admin.Email)
	}
}

func TestKnownNeighborhood(t *testing.T) {
	ward := WardConfig{Neighborhoods: []string{"Highland Park", "Crossroads"}}

	if !ward.KnownNeighborhood("Highland Park") {
		t.Error("exact match rejected")
	}
	if !ward.KnownNeighborhood("highland park") {
		t.Error("match must be case-insensitive")
	}
	if ward.KnownNeighborhood("Atlantis") {
		t.Error("unknown neighborhood accepted")
	}
	if ward.KnownNeighborhood("") {
		t.Error("empty name accepted")
	}
}
