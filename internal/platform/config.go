package platform

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every configuration knob of the control plane. Priority,
// low to high: defaults -> environment variables -> functional options.
// This mirrors core.Config's three-layer precedence. The optional YAML
// overlay (WithConfigFile) is itself a functional option, so it is applied
// after the environment and in option order.
type Config struct {
	Port int

	Camera struct {
		Index      int
		StreamRes  string // "WxH"
	}

	UseHardware     bool
	JointUnits      string // "rad" | "deg", display-only (§ supplemented feature 1)
	ModelMode       string // "scripted" is authoritative for tests
	ModelPath       string
	InferenceRateHz float64
	CalibrationPath string
	CORSOrigins     []string

	StoreBackend string // "inmemory" | "redis"
	RedisURL     string

	Logging struct {
		Level  string
		Format string
	}

	HTTP struct {
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		IdleTimeout     time.Duration
		ShutdownTimeout time.Duration
	}

	Resilience struct {
		CircuitBreakerThreshold int
		CircuitBreakerTimeout   time.Duration
	}

	OTelEndpoint string

	logger ComponentAwareLogger
}

// Option mutates a Config; applied after defaults+env, same as core.Option.
type Option func(*Config) error

// DefaultConfig returns the conservative defaults named in spec.md §6.
func DefaultConfig() *Config {
	c := &Config{
		Port:            5000,
		ModelMode:       "scripted",
		InferenceRateHz: 15,
		JointUnits:      "rad",
		StoreBackend:    "inmemory",
	}
	c.Camera.Index = 0
	c.Camera.StreamRes = "1280x720"
	c.Logging.Level = "info"
	c.Logging.Format = ""
	c.HTTP.ReadTimeout = 30 * time.Second
	c.HTTP.WriteTimeout = 30 * time.Second
	c.HTTP.IdleTimeout = 120 * time.Second
	c.HTTP.ShutdownTimeout = 10 * time.Second
	c.Resilience.CircuitBreakerThreshold = 5
	c.Resilience.CircuitBreakerTimeout = 30 * time.Second
	return c
}

// NewConfig builds a Config the way core.NewConfig does: defaults, then
// environment, then functional options in the order given (a
// WithConfigFile among opts is applied at its place in that order).
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = p
	}
	if v := os.Getenv("CAMERA_INDEX"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CAMERA_INDEX: %w", err)
		}
		c.Camera.Index = idx
	}
	if v := os.Getenv("STREAM_RES"); v != "" {
		c.Camera.StreamRes = v
	}
	if v := os.Getenv("USE_HARDWARE"); v != "" {
		c.UseHardware = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MODEL_MODE"); v != "" {
		c.ModelMode = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.ModelPath = v
	}
	if v := os.Getenv("INFERENCE_RATE_HZ"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("INFERENCE_RATE_HZ: %w", err)
		}
		c.InferenceRateHz = rate
	}
	if v := os.Getenv("CALIBRATION_PATH"); v != "" {
		c.CalibrationPath = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("ROBOTD_JOINT_UNITS"); v != "" {
		c.JointUnits = v
	}
	if v := os.Getenv("ROBOTD_STORE_BACKEND"); v != "" {
		c.StoreBackend = v
	}
	if v := os.Getenv("ROBOTD_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("ROBOTD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ROBOTD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("ROBOTD_OTEL_ENDPOINT"); v != "" {
		c.OTelEndpoint = v
	}
	return nil
}

// Validate rejects configurations that would make the façade unreachable
// or the worker loop nonsensical, mirroring core.Config.Validate.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return NewDomainError("Config.Validate", CodeInvalid, fmt.Sprintf("invalid port: %d", c.Port), nil)
	}
	if c.InferenceRateHz <= 0 {
		return NewDomainError("Config.Validate", CodeInvalid, "inference rate must be positive", nil)
	}
	if c.JointUnits != "rad" && c.JointUnits != "deg" {
		return NewDomainError("Config.Validate", CodeInvalid, "joint units must be rad or deg", nil)
	}
	return nil
}

// WithPort overrides the HTTP listen port.
func WithPort(port int) Option {
	return func(c *Config) error { c.Port = port; return nil }
}

// WithModelMode selects the PolicyProducer family.
func WithModelMode(mode string) Option {
	return func(c *Config) error { c.ModelMode = mode; return nil }
}

// WithInferenceRateHz overrides the control-loop pacing rate.
func WithInferenceRateHz(hz float64) Option {
	return func(c *Config) error {
		if hz <= 0 {
			return fmt.Errorf("inference rate must be positive, got %f", hz)
		}
		c.InferenceRateHz = hz
		return nil
	}
}

// WithCalibrationPath points at a joint-limits JSON file.
func WithCalibrationPath(path string) Option {
	return func(c *Config) error { c.CalibrationPath = path; return nil }
}

// WithCORSOrigins sets the allowed CORS origin list.
func WithCORSOrigins(origins []string) Option {
	return func(c *Config) error { c.CORSOrigins = origins; return nil }
}

// WithLogger injects a pre-built logger instead of constructing one from
// Logging.Level/Format, mirroring core.WithLogger.
func WithLogger(logger ComponentAwareLogger) Option {
	return func(c *Config) error { c.logger = logger; return nil }
}

// WithConfigFile overlays a YAML file onto the config. It is a convenience
// for local development (docker-compose, ad hoc calibration rigs). Like
// any Option it runs after environment variables are loaded, so a value
// set in the file overrides the same setting from the environment; a
// missing file is ignored.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
		var overlay struct {
			Port            *int     `yaml:"port"`
			ModelMode       *string  `yaml:"model_mode"`
			ModelPath       *string  `yaml:"model_path"`
			CalibrationPath *string  `yaml:"calibration_path"`
			InferenceRateHz *float64 `yaml:"inference_rate_hz"`
			CORSOrigins     []string `yaml:"cors_origins"`
		}
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
		if overlay.Port != nil {
			c.Port = *overlay.Port
		}
		if overlay.ModelMode != nil {
			c.ModelMode = *overlay.ModelMode
		}
		if overlay.ModelPath != nil {
			c.ModelPath = *overlay.ModelPath
		}
		if overlay.CalibrationPath != nil {
			c.CalibrationPath = *overlay.CalibrationPath
		}
		if overlay.InferenceRateHz != nil {
			c.InferenceRateHz = *overlay.InferenceRateHz
		}
		if overlay.CORSOrigins != nil {
			c.CORSOrigins = overlay.CORSOrigins
		}
		return nil
	}
}

// Logger returns the configured logger, constructing the default
// ProductionLogger on first use (lazy, matching core.NewConfig).
func (c *Config) Logger(service string) ComponentAwareLogger {
	if c.logger != nil {
		return c.logger
	}
	c.logger = NewProductionLogger(service, c.Logging.Level, c.Logging.Format)
	return c.logger
}
