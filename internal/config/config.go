// Package config arma la configuración: valores por defecto, después un YAML
// opcional (STOREFRONT_CONFIG) y por último variables de entorno.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// DevSessionKey es la clave de firma que se usa sólo fuera de producción.
const DevSessionKey = "dev-insecure"

var ErrMissingSessionKey = errors.New("config: SESSION_KEY es obligatoria en producción")

type Config struct {
	Port          string        `yaml:"port"`
	DSN           string        `yaml:"dsn"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisDB       int           `yaml:"redis_db"`
	SessionKey    string        `yaml:"session_key"`
	AdminAPIKey   string        `yaml:"admin_api_key"`
	SecureCookies bool          `yaml:"secure_cookies"`
	Threshold     float64       `yaml:"free_delivery_threshold"`
	DeliveryFee   float64       `yaml:"delivery_fee"`
	Currency      string        `yaml:"currency"`
	GeoEndpoint   string        `yaml:"geo_endpoint"`
	GeoTimeout    time.Duration `yaml:"geo_timeout"`
	Capitals      []string      `yaml:"capitals"`
	Locale        string        `yaml:"locale"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		Threshold:   40,
		DeliveryFee: 5,
		Currency:    "GEL",
		GeoTimeout:  3 * time.Second,
		Capitals:    []string{"Tbilisi", "თბილისი"},
		Locale:      "ka",
		SessionTTL:  12 * time.Hour,
	}
}

// Load aplica el archivo en path (si no está vacío) y después el entorno.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: leer %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: yaml: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DSN = v
	}
	if cfg.DSN == "" {
		cfg.DSN = dsnFromParts()
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("SESSION_KEY"); v != "" {
		cfg.SessionKey = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		cfg.AdminAPIKey = v
	}
	prod := false
	if v := strings.ToLower(os.Getenv("APP_ENV")); v == "production" || v == "prod" {
		prod = true
		cfg.SecureCookies = true
	}
	if cfg.SessionKey == "" || cfg.SessionKey == DevSessionKey {
		if prod {
			return ErrMissingSessionKey
		}
		cfg.SessionKey = DevSessionKey
	}
	if v := os.Getenv("GEO_ENDPOINT"); v != "" {
		cfg.GeoEndpoint = v
	}
	if v := os.Getenv("CAPITAL_CITY"); v != "" {
		cfg.Capitals = strings.Split(v, ",")
	}
	if v := os.Getenv("FREE_DELIVERY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: FREE_DELIVERY_THRESHOLD: %w", err)
		}
		cfg.Threshold = f
	}
	if v := os.Getenv("DELIVERY_FEE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: DELIVERY_FEE: %w", err)
		}
		cfg.DeliveryFee = f
	}
	if v := os.Getenv("GEO_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: GEO_TIMEOUT: %w", err)
		}
		cfg.GeoTimeout = d
	}
	return nil
}

func dsnFromParts() string {
	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", envOr("POSTGRES_USER", "postgres"))
	pass := envOr("DB_PASSWORD", envOr("POSTGRES_PASSWORD", "postgres"))
	name := envOr("DB_NAME", envOr("POSTGRES_DB", "vitrina"))
	ssl := envOr("DB_SSLMODE", "disable")
	return "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=" + ssl
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
