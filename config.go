package mpd

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"github.com/pior/mpd/protocol"
)

// Built-in defaults
const (
	DefaultHost    = "localhost"
	DefaultPort    = 6600
	DefaultTimeout = time.Second
)

// Config holds the configuration of a connection to an MPD server.
//
// Zero fields are "not set": NewConnection fills them with the built-in
// defaults. Use ConfigFromEnv and Merge to apply environment overrides with
// the precedence explicit value > environment > default.
type Config struct {
	// Host is the server host name or IP address.
	// Default: localhost
	Host string

	// Port is the server TCP port.
	// Default: 6600
	Port int

	// Timeout bounds every blocking operation: dial, handshake, and each
	// request/response cycle. A context deadline wins when it is earlier.
	// Default: 1s
	Timeout time.Duration

	// Password is sent with the password command right after the handshake.
	// Empty means no authentication.
	Password string

	// Mode selects how malformed response lines are handled.
	// The zero value is unset, so an explicit protocol.Lenient overrides a
	// lower layer.
	// Default: protocol.Lenient
	Mode protocol.Mode

	// Logger receives debug logs for commands and warnings for failures.
	// If nil, logging is disabled.
	Logger *zap.Logger

	// Dialer is the net.Dialer used to open the connection.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// for testing purposes only
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// envConfig is the subset of Config read from the environment.
type envConfig struct {
	Host     string  `env:"MPD_HOST"`
	Port     int     `env:"MPD_PORT"`
	Timeout  float64 `env:"MPD_TIMEOUT"` // seconds
	Password string  `env:"MPD_PASSWORD"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Host:    DefaultHost,
		Port:    DefaultPort,
		Timeout: DefaultTimeout,
		Mode:    protocol.Lenient,
	}
}

// ConfigFromEnv returns the built-in defaults overridden by the environment:
//
//	MPD_HOST      host, or password@host
//	MPD_PORT      port
//	MPD_TIMEOUT   timeout in seconds, fractions allowed
//	MPD_PASSWORD  password (MPD_HOST's password wins)
func ConfigFromEnv(ctx context.Context) (Config, error) {
	return ConfigFromLookuper(ctx, envconfig.OsLookuper())
}

// ConfigFromLookuper is ConfigFromEnv reading from l.
func ConfigFromLookuper(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	override, err := EnvOverrides(ctx, l)
	if err != nil {
		return Config{}, err
	}
	return DefaultConfig().Merge(override), nil
}

// EnvOverrides returns only the fields set in the environment read from l,
// the other fields are zero. Use it to insert the environment between two
// other configuration layers.
func EnvOverrides(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var env envConfig
	if err := envconfig.ProcessWith(ctx, &env, l); err != nil {
		return Config{}, &protocol.ConfigError{Field: "environment", Message: err.Error()}
	}

	if env.Timeout < 0 {
		return Config{}, &protocol.ConfigError{Field: "MPD_TIMEOUT", Message: "must be positive"}
	}

	override := Config{
		Host:     env.Host,
		Port:     env.Port,
		Timeout:  time.Duration(env.Timeout * float64(time.Second)),
		Password: env.Password,
	}

	// password@host, as understood by mpc
	if i := strings.LastIndexByte(override.Host, '@'); i > 0 {
		override.Password = override.Host[:i]
		override.Host = override.Host[i+1:]
	}

	return override, nil
}

// Merge returns c with every field set in override replacing its value.
func (c Config) Merge(override Config) Config {
	if override.Host != "" {
		c.Host = override.Host
	}
	if override.Port != 0 {
		c.Port = override.Port
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.Password != "" {
		c.Password = override.Password
	}
	if override.Mode != 0 {
		c.Mode = override.Mode
	}
	if override.Logger != nil {
		c.Logger = override.Logger
	}
	if override.Dialer != nil {
		c.Dialer = override.Dialer
	}
	if override.dial != nil {
		c.dial = override.dial
	}
	return c
}

// Validate checks the configuration and returns a *protocol.ConfigError.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return &protocol.ConfigError{Field: "host", Message: "must not be empty"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &protocol.ConfigError{Field: "port", Message: "must be between 1 and 65535, got " + strconv.Itoa(c.Port)}
	}
	if c.Timeout <= 0 {
		return &protocol.ConfigError{Field: "timeout", Message: "must be positive, got " + c.Timeout.String()}
	}
	if c.Mode != protocol.Lenient && c.Mode != protocol.Strict {
		return &protocol.ConfigError{Field: "mode", Message: "unknown mode " + strconv.Itoa(int(c.Mode))}
	}
	return nil
}

// Addr returns the host:port address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
