package app

import (
	"fmt"
	"time"

	"lotcopy-backend/internal/gateway"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/lib/configutil"
	configlibsql "lotcopy-backend/lib/configutil/libsql"
)

// GoldenKeyEnv overrides gateway.golden_key when set.
const GoldenKeyEnv = "LOTCOPY_GOLDEN_KEY"

type GatewayConfig struct {
	BaseUrl           string  `json:"base_url"`
	GoldenKey         string  `json:"golden_key"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	// DumpDir receives a file per HTTP exchange, may start with <dev_state>.
	DumpDir string         `json:"dump_dir"`
	Tracing bool           `json:"tracing"`
	Routes  gateway.Routes `json:"routes"`
}

func (c GatewayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type AuthConfig struct {
	// Mode is "endpoint" (default) or "form".
	Mode string `json:"mode"`
	// ProbePath is the page scraped in form mode, the offer edit page when
	// empty.
	ProbePath        string             `json:"probe_path"`
	ProbeSubcategory lots.SubcategoryID `json:"probe_subcategory"`
}

type TemplateConfig struct {
	// Strategy is "structured", "form" or "fallback" (default).
	Strategy string `json:"strategy"`
}

type ReplicateConfig struct {
	Parallelism int `json:"parallelism"`
	// Detail is "none", "best-effort" (default) or "required".
	Detail string `json:"detail"`
}

type ServerConfig struct {
	Port        int    `json:"port"`
	AccessToken string `json:"access_token"`
}

type Config struct {
	Gateway   GatewayConfig       `json:"gateway"`
	Auth      AuthConfig          `json:"auth"`
	Template  TemplateConfig      `json:"template"`
	Replicate ReplicateConfig     `json:"replicate"`
	Journal   configlibsql.Struct `json:"journal"`
	Server    ServerConfig        `json:"server"`
}

// JournalEnabled reports whether a journal database is configured.
func (c Config) JournalEnabled() bool {
	return c.Journal.File != "" || c.Journal.Url != ""
}

func (c Config) Validate() error {
	if c.Gateway.BaseUrl == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if c.Gateway.GoldenKey == "" {
		return fmt.Errorf("gateway.golden_key is required (or set %s)", GoldenKeyEnv)
	}
	switch c.Auth.Mode {
	case "", "endpoint", "form":
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	if c.Replicate.Parallelism < 0 {
		return fmt.Errorf("replicate.parallelism must not be negative")
	}
	return nil
}

// ReadConfig reads a json5 config (merged with its .local override) and
// applies environment overrides.
func ReadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	configutil.OverrideFromEnv(&cfg.Gateway.GoldenKey, GoldenKeyEnv)
	return cfg, nil
}
