package config

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/retain/internal/errors"
	"github.com/vango-dev/retain/pkg/server"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "retain.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultCacheControl is the Cache-Control of published snapshots.
	DefaultCacheControl = "public, max-age=60"
)

// Config represents the complete retain.json configuration.
type Config struct {
	// Name is the project name. It is used as the metrics namespace
	// when none is configured.
	Name string `json:"name,omitempty"`

	// Server contains live server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Runtime contains program runtime configuration.
	Runtime RuntimeConfig `json:"runtime,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Publish contains snapshot publishing configuration.
	Publish PublishConfig `json:"publish,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains live server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// WebSocketPath is where hosts connect (default: "/ws").
	WebSocketPath string `json:"webSocketPath,omitempty"`

	// Title is the document title of the served page.
	Title string `json:"title,omitempty"`

	// ClientScript is the URL of the host script.
	ClientScript string `json:"clientScript,omitempty"`

	// StyleSheets are linked from the served page.
	StyleSheets []string `json:"styleSheets,omitempty"`

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int `json:"maxSessions,omitempty"`

	// MaxMessageSize is the largest accepted host message in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`

	ReadTimeout       string `json:"readTimeout,omitempty"`
	WriteTimeout      string `json:"writeTimeout,omitempty"`
	HandshakeTimeout  string `json:"handshakeTimeout,omitempty"`
	HeartbeatInterval string `json:"heartbeatInterval,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (default: "15s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists the Origin values accepted on upgrade. Empty
	// means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// RuntimeConfig contains program runtime settings.
type RuntimeConfig struct {
	// Coalesce folds queued messages into one render.
	Coalesce bool `json:"coalesce,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Path      string `json:"path,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// PublishConfig contains snapshot publishing settings.
type PublishConfig struct {
	Bucket       string `json:"bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Region       string `json:"region,omitempty"`
	CacheControl string `json:"cacheControl,omitempty"`

	// Endpoint overrides the object store URL, for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `json:"level,omitempty"`

	// Format is text or json (default: text).
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads the configuration from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads and validates the configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("Could not find " + path).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		re := errors.New("E101").Wrap(err)
		var syntax *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syntax):
			re.WithOffset(path, data, syntax.Offset)
		case stderrors.As(err, &typ):
			re.WithOffset(path, data, typ.Offset).
				WithSuggestion("Field " + typ.Field + " must be a " + typ.Type.String())
		}
		return nil, re
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to the path it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = ConfigFileName
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E103").Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E103").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path of the config file.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := server.DefaultConfig()

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WebSocketPath == "" {
		c.Server.WebSocketPath = d.WebSocketPath
	}
	if c.Server.Title == "" {
		c.Server.Title = d.Title
	}
	if c.Server.ClientScript == "" {
		c.Server.ClientScript = d.ClientScript
	}
	if c.Server.MaxMessageSize == 0 {
		c.Server.MaxMessageSize = d.MaxMessageSize
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = d.ReadTimeout.String()
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = d.WriteTimeout.String()
	}
	if c.Server.HandshakeTimeout == "" {
		c.Server.HandshakeTimeout = d.HandshakeTimeout.String()
	}
	if c.Server.HeartbeatInterval == "" {
		c.Server.HeartbeatInterval = d.HeartbeatInterval.String()
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = metricName(c.Name)
	}

	if c.Publish.CacheControl == "" {
		c.Publish.CacheControl = DefaultCacheControl
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// metricName turns a project name into a Prometheus namespace.
func metricName(name string) string {
	if name == "" {
		return "retain"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port", "Port must be between 0 and 65535")
	}
	if c.Server.MaxSessions < 0 {
		return invalid("server.maxSessions", "maxSessions cannot be negative")
	}
	if c.Server.MaxMessageSize < 0 {
		return invalid("server.maxMessageSize", "maxMessageSize cannot be negative")
	}
	if !strings.HasPrefix(c.Server.WebSocketPath, "/") {
		return invalid("server.webSocketPath", "webSocketPath must start with /")
	}
	for field, v := range map[string]string{
		"server.readTimeout":       c.Server.ReadTimeout,
		"server.writeTimeout":      c.Server.WriteTimeout,
		"server.handshakeTimeout":  c.Server.HandshakeTimeout,
		"server.heartbeatInterval": c.Server.HeartbeatInterval,
		"server.shutdownTimeout":   c.Server.ShutdownTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return invalid(field, strconv.Quote(v)+" is not a positive duration").
				WithSuggestion("Use a Go duration such as \"30s\" or \"1m\"")
		}
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path", "metrics path must start with /")
	}
	if c.Metrics.Path == c.Server.WebSocketPath {
		return invalid("metrics.path", "metrics path collides with the WebSocket path")
	}
	if _, err := c.LogLevel(); err != nil {
		return invalid("log.level", err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format", "format must be text or json")
	}
	return nil
}

func invalid(field, detail string) *errors.RetainError {
	return errors.New("E102").WithDetail(field + ": " + detail)
}

// duration parses a validated duration field.
func duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}

// Address returns the listen address of the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout)
}

// ServerConfig converts the server section into a server.Config.
func (c *Config) ServerConfig() *server.Config {
	sc := &server.Config{
		ReadTimeout:       duration(c.Server.ReadTimeout),
		WriteTimeout:      duration(c.Server.WriteTimeout),
		HandshakeTimeout:  duration(c.Server.HandshakeTimeout),
		HeartbeatInterval: duration(c.Server.HeartbeatInterval),
		MaxMessageSize:    c.Server.MaxMessageSize,
		MaxSessions:       c.Server.MaxSessions,
		WebSocketPath:     c.Server.WebSocketPath,
		Title:             c.Server.Title,
		ClientScript:      c.Server.ClientScript,
		StyleSheets:       c.Server.StyleSheets,
	}
	if origins := c.Server.AllowedOrigins; len(origins) > 0 {
		sc.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}
	return sc
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// Logger builds the slog.Logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot searches upward from dir for a directory containing
// retain.json.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithSuggestion("Run retain from a directory containing " + ConfigFileName)
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the nearest retain.json above the working
// directory, or the defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}
	return Load(root)
}
