package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/envutil"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

// Duration accepts Go duration strings ("5s") or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if node.ShortTag() == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or int nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	WriteTimeout      Duration `yaml:"write_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxImageBytes     int64    `yaml:"max_image_bytes"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

type QuotaConfig struct {
	DailyLimit int    `yaml:"daily_limit"`
	Window     string `yaml:"window"`
	Timezone   string `yaml:"timezone"`
}

type ReplyConfig struct {
	FallbackPersonality string `yaml:"fallback_personality"`
}

type CapabilitiesConfig struct {
	Timeout   Duration `yaml:"timeout"`
	Extractor string   `yaml:"extractor"`
	Analyzer  string   `yaml:"analyzer"`
	Replier   string   `yaml:"replier"`
}

type OpenAIConfig struct {
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Timeout     Duration `yaml:"timeout"`
	MaxRetries  int      `yaml:"max_retries"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

type GeminiConfig struct {
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Timeout     Duration `yaml:"timeout"`
	Temperature *float32 `yaml:"temperature,omitempty"`
}

type VisionConfig struct {
	// Credentials is a service account JSON blob or a path to one. Empty uses ADC.
	Credentials   string   `yaml:"credentials"`
	LanguageHints []string `yaml:"language_hints"`
}

type StateConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	SQLitePath    string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	Headers     string  `yaml:"headers"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	Env          string             `yaml:"env"`
	HTTP         HTTPConfig         `yaml:"http"`
	Quota        QuotaConfig        `yaml:"quota"`
	Reply        ReplyConfig        `yaml:"reply"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Gemini       GeminiConfig       `yaml:"gemini"`
	Vision       VisionConfig       `yaml:"vision"`
	State        StateConfig        `yaml:"state"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	OTel         OTelConfig         `yaml:"otel"`

	quota    services.QuotaPolicy
	fallback user.PersonalityType
}

const (
	StateMemory   = "memory"
	StateRedis    = "redis"
	StatePostgres = "postgres"
	StateSQLite   = "sqlite"

	BackendStub      = "stub"
	BackendNone      = "none"
	BackendGCPVision = "gcp_vision"
	BackendOpenAI    = "openai"
	BackendGemini    = "gemini"
)

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{5 * time.Second},
			WriteTimeout:      Duration{2 * time.Minute},
			ShutdownTimeout:   Duration{15 * time.Second},
			MaxImageBytes:     10 << 20,
		},
		Quota: QuotaConfig{
			DailyLimit: 3,
			Window:     string(services.WindowCalendar),
			Timezone:   "UTC",
		},
		Reply: ReplyConfig{FallbackPersonality: string(user.INFP)},
		Capabilities: CapabilitiesConfig{
			Timeout:   Duration{20 * time.Second},
			Extractor: BackendStub,
			Analyzer:  BackendStub,
			Replier:   BackendStub,
		},
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini", Timeout: Duration{60 * time.Second}, MaxRetries: 2},
		Gemini: GeminiConfig{Model: "gemini-2.5-flash", Timeout: Duration{60 * time.Second}},
		Vision: VisionConfig{LanguageHints: []string{"zh-Hant", "en"}},
		State: StateConfig{
			Backend:    StateMemory,
			SQLitePath: "babetranslator.db",
		},
		Metrics: MetricsConfig{Addr: ":9090"},
		OTel:    OTelConfig{ServiceName: "babetranslator", SampleRatio: 1},
	}
}

// LoadConfig reads an optional YAML file, applies environment overrides and
// validates the result. path wins over BT_CONFIG_PATH, which wins over
// ./config/config.yaml.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(path)
	if cfgPath == "" {
		cfgPath = strings.TrimSpace(os.Getenv("BT_CONFIG_PATH"))
	}
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)

	cfg.HTTP.Addr = envutil.String("BT_HTTP_ADDR", cfg.HTTP.Addr)
	if port := envutil.String("PORT", ""); port != "" && os.Getenv("BT_HTTP_ADDR") == "" {
		cfg.HTTP.Addr = ":" + port
	}
	cfg.HTTP.ReadHeaderTimeout.Duration = envutil.Duration("BT_HTTP_READ_HEADER_TIMEOUT", cfg.HTTP.ReadHeaderTimeout.Duration)
	cfg.HTTP.ShutdownTimeout.Duration = envutil.Duration("BT_HTTP_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout.Duration)
	cfg.HTTP.MaxImageBytes = envutil.Int64("BT_MAX_IMAGE_BYTES", cfg.HTTP.MaxImageBytes)
	cfg.HTTP.CORSOrigins = envutil.List("BT_CORS_ORIGINS", cfg.HTTP.CORSOrigins)

	cfg.Quota.DailyLimit = envutil.Int("BT_QUOTA_DAILY_LIMIT", cfg.Quota.DailyLimit)
	cfg.Quota.Window = envutil.String("BT_QUOTA_WINDOW", cfg.Quota.Window)
	cfg.Quota.Timezone = envutil.String("BT_QUOTA_TIMEZONE", cfg.Quota.Timezone)
	cfg.Reply.FallbackPersonality = envutil.String("BT_FALLBACK_PERSONALITY", cfg.Reply.FallbackPersonality)

	cfg.Capabilities.Timeout.Duration = envutil.Duration("BT_CAPABILITY_TIMEOUT", cfg.Capabilities.Timeout.Duration)
	cfg.Capabilities.Extractor = envutil.String("BT_EXTRACTOR", cfg.Capabilities.Extractor)
	cfg.Capabilities.Analyzer = envutil.String("BT_ANALYZER", cfg.Capabilities.Analyzer)
	cfg.Capabilities.Replier = envutil.String("BT_REPLIER", cfg.Capabilities.Replier)

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.Gemini.APIKey = envutil.String("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = envutil.String("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Vision.Credentials = envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", cfg.Vision.Credentials)

	cfg.State.Backend = envutil.String("BT_STATE_BACKEND", cfg.State.Backend)
	cfg.State.RedisAddr = envutil.String("REDIS_ADDR", cfg.State.RedisAddr)
	cfg.State.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.State.RedisPassword)
	cfg.State.PostgresDSN = envutil.String("POSTGRES_DSN", cfg.State.PostgresDSN)
	cfg.State.SQLitePath = envutil.String("SQLITE_PATH", cfg.State.SQLitePath)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = envutil.String("METRICS_ADDR", cfg.Metrics.Addr)

	cfg.OTel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.OTel.ServiceName)
	cfg.OTel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTel.Insecure)
	cfg.OTel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.OTel.Headers)
	cfg.OTel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.OTel.SampleRatio)
}

func (c *Config) validate() error {
	var errs []error

	if strings.TrimSpace(c.Env) == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("http.max_image_bytes must be positive"))
	}

	if c.Quota.DailyLimit <= 0 {
		errs = append(errs, errors.New("quota.daily_limit must be positive"))
	}
	window, err := services.ParseWindowMode(c.Quota.Window)
	if err != nil {
		errs = append(errs, fmt.Errorf("quota.window: %w", err))
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Quota.Timezone))
	if err != nil {
		errs = append(errs, fmt.Errorf("quota.timezone: %w", err))
	}
	c.quota = services.QuotaPolicy{DailyLimit: c.Quota.DailyLimit, Window: window, Location: loc}

	c.fallback, err = user.ParsePersonalityType(c.Reply.FallbackPersonality)
	if err != nil {
		errs = append(errs, fmt.Errorf("reply.fallback_personality: %w", err))
	}

	if c.Capabilities.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("capabilities.timeout must be positive"))
	}
	c.Capabilities.Extractor = normalizeBackend(c.Capabilities.Extractor)
	switch c.Capabilities.Extractor {
	case BackendStub, BackendNone, BackendGCPVision:
	default:
		errs = append(errs, fmt.Errorf("capabilities.extractor: unknown backend %q", c.Capabilities.Extractor))
	}
	c.Capabilities.Analyzer = normalizeBackend(c.Capabilities.Analyzer)
	c.Capabilities.Replier = normalizeBackend(c.Capabilities.Replier)
	for name, backend := range map[string]string{"analyzer": c.Capabilities.Analyzer, "replier": c.Capabilities.Replier} {
		switch backend {
		case BackendStub:
		case BackendOpenAI:
			if strings.TrimSpace(c.OpenAI.APIKey) == "" {
				errs = append(errs, fmt.Errorf("capabilities.%s=openai needs openai.api_key", name))
			}
		case BackendGemini:
			if strings.TrimSpace(c.Gemini.APIKey) == "" {
				errs = append(errs, fmt.Errorf("capabilities.%s=gemini needs gemini.api_key", name))
			}
		default:
			errs = append(errs, fmt.Errorf("capabilities.%s: unknown backend %q", name, backend))
		}
	}

	c.State.Backend = normalizeBackend(c.State.Backend)
	switch c.State.Backend {
	case StateMemory:
	case StateRedis:
		if strings.TrimSpace(c.State.RedisAddr) == "" {
			errs = append(errs, errors.New("state.redis_addr is required for the redis backend"))
		}
	case StatePostgres:
		if strings.TrimSpace(c.State.PostgresDSN) == "" {
			errs = append(errs, errors.New("state.postgres_dsn is required for the postgres backend"))
		}
	case StateSQLite:
		if strings.TrimSpace(c.State.SQLitePath) == "" {
			errs = append(errs, errors.New("state.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("state.backend: unknown backend %q", c.State.Backend))
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		errs = append(errs, errors.New("otel.sample_ratio must be within [0, 1]"))
	}

	return errors.Join(errs...)
}

func normalizeBackend(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.ReplaceAll(v, "-", "_")
}

func (c *Config) QuotaPolicy() services.QuotaPolicy { return c.quota }

func (c *Config) FallbackPersonality() user.PersonalityType { return c.fallback }

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.OpenAI.APIKey = redact(out.OpenAI.APIKey)
	out.Gemini.APIKey = redact(out.Gemini.APIKey)
	out.State.RedisPassword = redact(out.State.RedisPassword)
	out.State.PostgresDSN = redact(out.State.PostgresDSN)
	out.OTel.Headers = redact(out.OTel.Headers)
	if strings.HasPrefix(strings.TrimSpace(out.Vision.Credentials), "{") {
		out.Vision.Credentials = redact(out.Vision.Credentials)
	}
	return out
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return "[redacted]"
}
