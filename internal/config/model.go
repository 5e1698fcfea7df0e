// internal/config/model.go
//
// Typed configuration model for bizdir.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `BIZDIR_`-prefixed environment overrides – highest precedence.
//
// Any string value that begins with `vault:` is resolved through the Vault
// client *before* validation, so the model never keeps Vault URIs once
// Load returns.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Default() seeds every field; YAML and env only override.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	ForceHTTPS      bool          `koanf:"force_https"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

//
// Site section
//

// Site holds presentation identity.  BaseURL, when set, prefixes canonical
// links; otherwise pages emit none.
type Site struct {
	Name    string `koanf:"name"     validate:"required"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

//
// Backend section
//

// Backend points at the PHP API that owns every directory record.
//
// ImageBaseURL prefixes relative image paths returned by the API.
// FallbackImage is served when a listing carries no image at all.
type Backend struct {
	BaseURL           string        `koanf:"base_url"            validate:"required,url"`
	ImageBaseURL      string        `koanf:"image_base_url"      validate:"omitempty,url"`
	FallbackImage     string        `koanf:"fallback_image"      validate:"required"`
	Timeout           time.Duration `koanf:"timeout"             validate:"gt=0"`
	Retries           int           `koanf:"retries"             validate:"gte=0,lte=5"`
	RequestsPerSecond int           `koanf:"requests_per_second" validate:"gte=0"`
	UserAgent         string        `koanf:"user_agent"`
}

//
// Catalog section
//

// Catalog tunes the category tree service.  A zero CacheTTL fetches the tree
// on every request; concurrent fetches are still collapsed.
type Catalog struct {
	CacheTTL     time.Duration `koanf:"cache_ttl"     validate:"gte=0"`
	AliasRefresh time.Duration `koanf:"alias_refresh" validate:"gt=0"`
}

//
// Business section
//

// Business controls the detail resolver.  StaticFallback keeps the
// development placeholder records in the chain.
type Business struct {
	StaticFallback bool `koanf:"static_fallback"`
}

//
// Session section
//

// Session configures the login session.  Secret signs cookies (cookie store)
// and is typically a `vault:` reference in production.
type Session struct {
	Store      string        `koanf:"store"       validate:"oneof=cookie redis"`
	CookieName string        `koanf:"cookie_name" validate:"required"`
	Secret     string        `koanf:"secret"      validate:"required,min=32"`
	MaxAge     time.Duration `koanf:"max_age"     validate:"gt=0"`
	Secure     bool          `koanf:"secure"`
}

// Redis is only dialled when Session.Store == "redis".
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

// Geo points at an optional GeoLite2-City database.  Empty disables lookups.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

// Theme selects the template override directory under <root>/themes.
type Theme struct {
	Name string `koanf:"name" validate:"required"`
}

// Log controls the file logger.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // BIZDIR_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Site     Site     `koanf:"site"`
	Backend  Backend  `koanf:"backend"`
	Catalog  Catalog  `koanf:"catalog"`
	Business Business `koanf:"business"`
	Session  Session  `koanf:"session"`
	Redis    Redis    `koanf:"redis"`
	Geo      Geo      `koanf:"geo"`
	Theme    Theme    `koanf:"theme"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}

// Default returns the baseline every overlay is applied on top of.
// Session.Secret is left empty on purpose so a deployment cannot start
// without one.
func Default() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Site: Site{Name: "Business Directory"},
		Backend: Backend{
			FallbackImage:     "/themes/base/assets/img/placeholder.svg",
			Timeout:           10 * time.Second,
			Retries:           1,
			RequestsPerSecond: 20,
			UserAgent:         "bizdir/1.0",
		},
		Catalog: Catalog{
			AliasRefresh: 5 * time.Minute,
		},
		Business: Business{StaticFallback: true},
		Session: Session{
			Store:      "cookie",
			CookieName: "bizdir_session",
			MaxAge:     14 * 24 * time.Hour,
		},
		Redis: Redis{Addr: "127.0.0.1:6379"},
		Theme: Theme{Name: "base"},
		Log:   Log{Level: "info"},
	}
}
