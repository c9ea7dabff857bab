package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL pública del servicio; se usa para armar los redirect_uri
		// de los callbacks OAuth.
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Storage struct {
		// driver: postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// kind: memory | redis. Respalda el state store del flujo OAuth.
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Auth struct {
		// Secreto HS256 para validar los bearer tokens de los tenants.
		// Solo por env: POSTPILOT_JWT_SECRET.
		JWTSecret string `yaml:"-"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`

	Security struct {
		// Clave maestra (base64, 32 bytes) para cifrar tokens en reposo.
		// Solo por env: POSTPILOT_MASTER_KEY.
		MasterKey string `yaml:"-"`
	} `yaml:"-"`

	OAuth struct {
		// TTL del state single-use. Fijo en 10m salvo override explícito.
		StateTTL time.Duration `yaml:"state_ttl"`
	} `yaml:"oauth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		// kind: memory | redis
		Kind       string       `yaml:"kind"`
		Categories RateCategory `yaml:"categories"`
	} `yaml:"rate"`

	Scheduler struct {
		Enabled      bool          `yaml:"enabled"`
		TickInterval time.Duration `yaml:"tick_interval"`
		BatchSize    int           `yaml:"batch_size"`
		Concurrency  int           `yaml:"concurrency"`
		ItemTimeout  time.Duration `yaml:"item_timeout"`
		MaxAttempts  int           `yaml:"max_attempts"`
	} `yaml:"scheduler"`

	Credentials struct {
		// Margen antes de expires_at en el que ya refrescamos.
		RefreshGrace time.Duration `yaml:"refresh_grace"`
	} `yaml:"credentials"`

	Credits struct {
		// mode: allow | fixed (fixed solo para tests/dev)
		Mode      string `yaml:"mode"`
		Allowance int    `yaml:"allowance"`
	} `yaml:"credits"`

	// Providers: client id/secret SIEMPRE por env, nunca en YAML.
	// POSTPILOT_<PROVIDER>_CLIENT_ID / POSTPILOT_<PROVIDER>_CLIENT_SECRET.
	Providers map[string]ProviderCredentials `yaml:"-"`
}

// RateCategory agrupa los límites por categoría de endpoint.
type RateCategory struct {
	ExpensiveGeneration Limit `yaml:"expensive_generation"`
	Auth                Limit `yaml:"auth"`
	Public              Limit `yaml:"public"`
	Default             Limit `yaml:"default"`
}

// Limit define un límite de requests por ventana.
type Limit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// ProviderCredentials es el par client id/secret de un proveedor OAuth.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

// providerEnvNames lista los proveedores cuyos secretos buscamos en el env.
// Instagram y Threads comparten la app de Meta (facebook) y no llevan
// credenciales propias.
var providerEnvNames = []string{
	"twitter", "linkedin", "facebook", "tiktok", "youtube", "pinterest", "reddit",
}

func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.OAuth.StateTTL == 0 {
		c.OAuth.StateTTL = 10 * time.Minute
	}
	if c.Rate.Kind == "" {
		c.Rate.Kind = "memory"
	}
	applyRateDefaults(&c.Rate.Categories)

	if c.Scheduler.TickInterval == 0 {
		c.Scheduler.TickInterval = time.Minute
	}
	if c.Scheduler.BatchSize == 0 {
		c.Scheduler.BatchSize = 50
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = 8
	}
	if c.Scheduler.ItemTimeout == 0 {
		c.Scheduler.ItemTimeout = 30 * time.Second
	}
	if c.Scheduler.MaxAttempts == 0 {
		c.Scheduler.MaxAttempts = 3
	}
	if c.Credentials.RefreshGrace == 0 {
		c.Credentials.RefreshGrace = 5 * time.Minute
	}
	if c.Credits.Mode == "" {
		c.Credits.Mode = "allow"
	}

	// env overrides
	if v := os.Getenv("POSTPILOT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("POSTPILOT_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("POSTPILOT_DSN"); v != "" {
		c.Storage.DSN = v
	}
	c.Auth.JWTSecret = os.Getenv("POSTPILOT_JWT_SECRET")
	c.Security.MasterKey = os.Getenv("POSTPILOT_MASTER_KEY")

	// Provider secrets: solo env. Un proveedor sin par completo queda
	// deshabilitado (ProviderNotConfigured), nunca rompe el arranque.
	c.Providers = make(map[string]ProviderCredentials, len(providerEnvNames))
	for _, name := range providerEnvNames {
		prefix := "POSTPILOT_" + strings.ToUpper(name)
		id := strings.TrimSpace(os.Getenv(prefix + "_CLIENT_ID"))
		secret := strings.TrimSpace(os.Getenv(prefix + "_CLIENT_SECRET"))
		if id != "" && secret != "" {
			c.Providers[name] = ProviderCredentials{ClientID: id, ClientSecret: secret}
		}
	}

	// validate string durations
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, fmt.Errorf("config: storage.postgres.conn_max_lifetime: %w", err)
		}
	}

	return &c, nil
}

func applyRateDefaults(rc *RateCategory) {
	if rc.ExpensiveGeneration.Limit == 0 {
		rc.ExpensiveGeneration.Limit = 10
	}
	if rc.ExpensiveGeneration.Window == 0 {
		rc.ExpensiveGeneration.Window = time.Minute
	}
	if rc.Auth.Limit == 0 {
		rc.Auth.Limit = 5
	}
	if rc.Auth.Window == 0 {
		rc.Auth.Window = time.Minute
	}
	if rc.Public.Limit == 0 {
		rc.Public.Limit = 30
	}
	if rc.Public.Window == 0 {
		rc.Public.Window = time.Minute
	}
	if rc.Default.Limit == 0 {
		rc.Default.Limit = 100
	}
	if rc.Default.Window == 0 {
		rc.Default.Window = time.Minute
	}
}
