package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// Network error policies for the token verification call.
const (
	PolicyFailOpen   = "fail-open"
	PolicyFailClosed = "fail-closed"
)

// Fetch policies accepted by the GraphQL client.
const (
	FetchNoCache      = "no-cache"
	FetchCacheFirst   = "cache-first"
	FetchNetworkOnly  = "network-only"
	defaultServerAddr = "http://localhost:3333"
)

// Endpoints holds the three backend base URLs. Empty values fall back to
// the server origin.
type Endpoints struct {
	Server             string `yaml:"server" mapstructure:"server"`
	GraphQLHTTPBaseURL string `yaml:"graphql_http_base_url" mapstructure:"graphql_http_base_url"`
	GraphQLWSBaseURL   string `yaml:"graphql_ws_base_url" mapstructure:"graphql_ws_base_url"`
	HTTPBaseURL        string `yaml:"http_base_url" mapstructure:"http_base_url"`
}

type Auth struct {
	CheckInterval      time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
	ClockTick          time.Duration `yaml:"clock_tick" mapstructure:"clock_tick"`
	LoginTransition    time.Duration `yaml:"login_transition" mapstructure:"login_transition"`
	LogoutRedirect     time.Duration `yaml:"logout_redirect" mapstructure:"logout_redirect"`
	NetworkErrorPolicy string        `yaml:"network_error_policy" mapstructure:"network_error_policy"`
	DisableTimers      bool          `yaml:"disable_timers" mapstructure:"disable_timers"`
}

type GraphQL struct {
	FetchPolicy string        `yaml:"fetch_policy" mapstructure:"fetch_policy"`
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type WebSocket struct {
	Retries    int           `yaml:"retries" mapstructure:"retries"`
	MinBackoff time.Duration `yaml:"min_backoff" mapstructure:"min_backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	AckTimeout time.Duration `yaml:"ack_timeout" mapstructure:"ack_timeout"`
}

type Config struct {
	Endpoints Endpoints  `yaml:"endpoints" mapstructure:"endpoints"`
	Auth      Auth       `yaml:"auth" mapstructure:"auth"`
	GraphQL   GraphQL    `yaml:"graphql" mapstructure:"graphql"`
	WebSocket WebSocket  `yaml:"websocket" mapstructure:"websocket"`
	StateDir  string     `yaml:"state_dir" mapstructure:"state_dir"`
	Ephemeral bool       `yaml:"ephemeral" mapstructure:"ephemeral"`
	Log       log.Config `yaml:"log" mapstructure:"log"`

	StateEncryption StateEncryption `yaml:"state_encryption" mapstructure:"state_encryption"`
}

// StateEncryption encrypts the on-disk state directory. The key is read
// from KeyEnv when that variable is set, otherwise from KeyFile, which is
// created on first use.
type StateEncryption struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`
	KeyEnv  string `yaml:"key_env" mapstructure:"key_env"`
}

func Default() *Config {
	return &Config{
		Endpoints: Endpoints{Server: defaultServerAddr},
		Auth: Auth{
			CheckInterval:      5 * time.Second,
			ClockTick:          10 * time.Second,
			LoginTransition:    time.Second,
			LogoutRedirect:     500 * time.Millisecond,
			NetworkErrorPolicy: PolicyFailOpen,
		},
		GraphQL: GraphQL{
			FetchPolicy: FetchNoCache,
			CacheTTL:    30 * time.Second,
			Timeout:     30 * time.Second,
		},
		WebSocket: WebSocket{
			Retries:    5,
			MinBackoff: 250 * time.Millisecond,
			MaxBackoff: 10 * time.Second,
			AckTimeout: 10 * time.Second,
		},
		StateDir: defaultStateDir(),
		Log:      *log.DefaultConfig(),
		StateEncryption: StateEncryption{
			KeyEnv: "SWCTL_STATE_KEY",
		},
	}
}

func defaultStateDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return "./.swctl/state"
	}
	return filepath.Join(home, ".swctl", "state")
}

// Load reads the YAML file at path (or ~/.swctl/config.yaml when path is
// empty) and applies SWCTL_* environment overrides. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".swctl"))
		}
		v.AddConfigPath(".")
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("SWCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short env names for the endpoint overrides.
	_ = v.BindEnv("endpoints.graphql_http_base_url", "SWCTL_GRAPHQL_HTTP_BASE_URL")
	_ = v.BindEnv("endpoints.graphql_ws_base_url", "SWCTL_GRAPHQL_WS_BASE_URL")
	_ = v.BindEnv("endpoints.http_base_url", "SWCTL_HTTP_BASE_URL")
	_ = v.BindEnv("endpoints.server", "SWCTL_SERVER")

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asNotFound(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv sees it during
// Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("endpoints.server", cfg.Endpoints.Server)
	v.SetDefault("endpoints.graphql_http_base_url", "")
	v.SetDefault("endpoints.graphql_ws_base_url", "")
	v.SetDefault("endpoints.http_base_url", "")
	v.SetDefault("auth.check_interval", cfg.Auth.CheckInterval)
	v.SetDefault("auth.clock_tick", cfg.Auth.ClockTick)
	v.SetDefault("auth.login_transition", cfg.Auth.LoginTransition)
	v.SetDefault("auth.logout_redirect", cfg.Auth.LogoutRedirect)
	v.SetDefault("auth.network_error_policy", cfg.Auth.NetworkErrorPolicy)
	v.SetDefault("auth.disable_timers", false)
	v.SetDefault("graphql.fetch_policy", cfg.GraphQL.FetchPolicy)
	v.SetDefault("graphql.cache_ttl", cfg.GraphQL.CacheTTL)
	v.SetDefault("graphql.timeout", cfg.GraphQL.Timeout)
	v.SetDefault("websocket.retries", cfg.WebSocket.Retries)
	v.SetDefault("websocket.min_backoff", cfg.WebSocket.MinBackoff)
	v.SetDefault("websocket.max_backoff", cfg.WebSocket.MaxBackoff)
	v.SetDefault("websocket.ack_timeout", cfg.WebSocket.AckTimeout)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("ephemeral", false)
	v.SetDefault("state_encryption.enabled", false)
	v.SetDefault("state_encryption.key_file", "")
	v.SetDefault("state_encryption.key_env", cfg.StateEncryption.KeyEnv)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

func asNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return os.IsNotExist(err)
}

// Validate checks enumerated values and durations.
func (c *Config) Validate() error {
	switch c.Auth.NetworkErrorPolicy {
	case PolicyFailOpen, PolicyFailClosed:
	default:
		return fmt.Errorf("invalid auth.network_error_policy %q (want %s or %s)",
			c.Auth.NetworkErrorPolicy, PolicyFailOpen, PolicyFailClosed)
	}
	switch c.GraphQL.FetchPolicy {
	case FetchNoCache, FetchCacheFirst, FetchNetworkOnly:
	default:
		return fmt.Errorf("invalid graphql.fetch_policy %q", c.GraphQL.FetchPolicy)
	}
	if c.Auth.CheckInterval <= 0 || c.Auth.ClockTick <= 0 {
		return fmt.Errorf("auth intervals must be positive")
	}
	return nil
}

// StateKeyFile returns the key file of the state directory. It defaults to
// state.key next to the directory, so removing the state keeps the key.
func (c *Config) StateKeyFile() string {
	if c.StateEncryption.KeyFile != "" {
		return c.StateEncryption.KeyFile
	}
	return filepath.Join(filepath.Dir(filepath.Clean(c.StateDir)), "state.key")
}

// FailOpen reports whether a transport failure during token verification
// counts as authenticated.
func (c *Config) FailOpen() bool {
	return c.Auth.NetworkErrorPolicy != PolicyFailClosed
}

// Resolve fills empty endpoint URLs from the server origin. The WebSocket
// base uses ws or wss depending on the server scheme.
func (e Endpoints) Resolve() (Endpoints, error) {
	server := e.Server
	if server == "" {
		server = defaultServerAddr
	}
	u, err := url.Parse(server)
	if err != nil || u.Scheme == "" || u.Host == "" {
		// "host:3333" is not a URL on its own; retry with http.
		u, err = url.Parse("http://" + server)
		if err != nil || u.Host == "" {
			return e, fmt.Errorf("invalid server address %q", server)
		}
	}
	origin := fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	wsScheme := "ws"
	if u.Scheme == "https" {
		wsScheme = "wss"
	}

	out := Endpoints{
		Server:             origin,
		GraphQLHTTPBaseURL: strings.TrimRight(e.GraphQLHTTPBaseURL, "/"),
		GraphQLWSBaseURL:   strings.TrimRight(e.GraphQLWSBaseURL, "/"),
		HTTPBaseURL:        strings.TrimRight(e.HTTPBaseURL, "/"),
	}
	if out.GraphQLHTTPBaseURL == "" {
		out.GraphQLHTTPBaseURL = origin
	}
	if out.HTTPBaseURL == "" {
		out.HTTPBaseURL = origin
	}
	if out.GraphQLWSBaseURL == "" {
		out.GraphQLWSBaseURL = fmt.Sprintf("%s://%s", wsScheme, u.Host)
	}
	return out, nil
}
