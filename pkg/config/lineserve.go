package config

import (
	"fmt"
	"time"
)

// EnvPrefix prefixes every environment override, e.g. LINESERVE_SERVER_ADDR.
const EnvPrefix = "LINESERVE"

// Config is the lineserve configuration. Durations are written as Go
// duration strings in YAML and environment variables ("5s") and as
// nanoseconds in JSON.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Content ContentConfig `yaml:"content" json:"content"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Events  EventsConfig  `yaml:"events" json:"events"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	Workers         int           `yaml:"workers" json:"workers"`
	MaxQueue        int           `yaml:"max_queue" json:"max_queue"`
	MaxConns        int           `yaml:"max_conns" json:"max_conns"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// ContentConfig describes the canned responses.
type ContentConfig struct {
	Root       string        `yaml:"root" json:"root"`
	Reload     bool          `yaml:"reload" json:"reload"`
	Routes     []RouteConfig `yaml:"routes" json:"routes"`
	NotFound   string        `yaml:"not_found" json:"not_found"`
	BadRequest string        `yaml:"bad_request" json:"bad_request"`

	MaxLineBytes int `yaml:"max_line_bytes" json:"max_line_bytes"`
	MaxLines     int `yaml:"max_lines" json:"max_lines"`
}

// RouteConfig maps a request-line prefix to a file under Content.Root.
type RouteConfig struct {
	RequestLine string `yaml:"request_line" json:"request_line"`
	Resource    string `yaml:"resource" json:"resource"`
	Status      int    `yaml:"status" json:"status"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	// Access logs one line per finished connection.
	Access bool `yaml:"access" json:"access"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

type TracingConfig struct {
	// Exporter is one of none, stdout, zipkin.
	Exporter    string  `yaml:"exporter" json:"exporter"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`
}

type EventsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
	Prefix  string `yaml:"prefix" json:"prefix"`
}

// Default returns a configuration that serves public/ on 127.0.0.1:7878.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:7878",
			Workers:         4,
			MaxQueue:        64,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Content: ContentConfig{
			Root: "public",
			Routes: []RouteConfig{
				{RequestLine: "GET / HTTP/1.1", Resource: "index.html", Status: 200},
			},
			NotFound:     "404.html",
			BadRequest:   "400.html",
			MaxLineBytes: 8 << 10,
			MaxLines:     100,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9090",
			Path: "/metrics",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "lineserve",
			SampleRatio: 1,
		},
		Events: EventsConfig{
			URL:    "nats://127.0.0.1:4222",
			Prefix: "lineserve",
		},
	}
}

// Validators returns the checks applied by LoadConfig.
func Validators() []Validator {
	return []Validator{
		RequiredFields("Server.Addr", "Content.Root", "Content.NotFound", "Content.BadRequest"),
		RangeValidator("Server.Workers", 1, 1024),
		RangeValidator("Server.MaxQueue", 1, 1<<20),
		RangeValidator("Server.MaxConns", 0, 1<<20),
		RangeValidator("Tracing.SampleRatio", 0, 1),
		OneOfValidator("Log.Level", "debug", "info", "warn", "error"),
		OneOfValidator("Log.Format", "text", "json", "logfmt"),
		OneOfValidator("Tracing.Exporter", "none", "stdout", "zipkin"),
		StringLengthValidator("Events.Prefix", 1, 64),
		AddressValidator("Server.Addr"),
		TimeoutValidator("Server.ReadTimeout", "Server.WriteTimeout", "Server.ShutdownTimeout"),
		ValidatorFunc(validateRoutes),
		ValidatorFunc(validateEndpoints),
	}
}

func validateRoutes(v interface{}) error {
	cfg := v.(*Config)
	for i, r := range cfg.Content.Routes {
		if r.RequestLine == "" || r.Resource == "" {
			return fmt.Errorf("content.routes[%d]: request_line and resource are required", i)
		}
		switch r.Status {
		case 0, 200, 400, 404:
		default:
			return fmt.Errorf("content.routes[%d]: unsupported status %d", i, r.Status)
		}
	}
	return nil
}

func validateEndpoints(v interface{}) error {
	cfg := v.(*Config)
	if cfg.Tracing.Exporter == "zipkin" && cfg.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required for the zipkin exporter")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	if cfg.Events.Enabled && cfg.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}
	return nil
}

// LoadConfig starts from Default, overlays path when non-empty, applies
// LINESERVE_* overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := Load(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnvOverrides(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	if err := Validate(&cfg, Validators()...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
