package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultRelayURL      = "ws://localhost:5000/ws"
	DefaultSTUN          = "stun:stun.l.google.com:19302"
	DefaultSTUNFallback  = "stun:global.stun.twilio.com:3478"
	DefaultCodec         = "json"
	DefaultSignalTimeout = 15 * time.Second
	DefaultListenAddr    = ":5000"
)

// Keys used in the config file and, prefixed with CODEHIVE_, in the environment.
const (
	KeyRelayURL      = "relay_url"
	KeySTUNServer    = "stun_server"
	KeyTURNServer    = "turn_server"
	KeyTURNUser      = "turn_username"
	KeyTURNPass      = "turn_password"
	KeyForceRelay    = "force_relay"
	KeyCodec         = "codec"
	KeySignalTimeout = "signal_timeout"
	KeyListenAddr    = "listen_addr"
	KeyMetrics       = "metrics"
)

var ErrInvalidCodec = errors.New("codec must be json or msgpack")

// Config holds application configuration
type Config struct {
	// RelayURL is the websocket endpoint of the message relay
	RelayURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Codec selects the relay wire format: "json" or "msgpack"
	Codec string

	// SignalTimeout bounds how long create/join wait for the relay's ack
	SignalTimeout time.Duration

	// Relay server settings
	ListenAddr     string
	MetricsEnabled bool
}

// Options carries CLI flag overrides. Zero values mean "not set".
type Options struct {
	ConfigFile string
	RelayURL   string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Codec      string
	ListenAddr string
	Metrics    bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (CODEHIVE_*)
// 3. Config file ($HOME/.codehive.yaml or Options.ConfigFile)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyRelayURL, DefaultRelayURL)
	v.SetDefault(KeySTUNServer, DefaultSTUN)
	v.SetDefault(KeyCodec, DefaultCodec)
	v.SetDefault(KeySignalTimeout, DefaultSignalTimeout)
	v.SetDefault(KeyListenAddr, DefaultListenAddr)

	v.SetEnvPrefix("codehive")
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(".codehive")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	override(v, KeyRelayURL, opts.RelayURL)
	override(v, KeySTUNServer, opts.STUNServer)
	override(v, KeyTURNServer, opts.TURNServer)
	override(v, KeyTURNUser, opts.TURNUser)
	override(v, KeyTURNPass, opts.TURNPass)
	override(v, KeyCodec, opts.Codec)
	override(v, KeyListenAddr, opts.ListenAddr)
	if opts.ForceRelay {
		v.Set(KeyForceRelay, true)
	}
	if opts.Metrics {
		v.Set(KeyMetrics, true)
	}

	cfg := &Config{
		RelayURL:       v.GetString(KeyRelayURL),
		STUNServer:     v.GetString(KeySTUNServer),
		TURNServer:     v.GetString(KeyTURNServer),
		TURNUser:       v.GetString(KeyTURNUser),
		TURNPass:       v.GetString(KeyTURNPass),
		ForceRelay:     v.GetBool(KeyForceRelay),
		Codec:          strings.ToLower(v.GetString(KeyCodec)),
		SignalTimeout:  v.GetDuration(KeySignalTimeout),
		ListenAddr:     v.GetString(KeyListenAddr),
		MetricsEnabled: v.GetBool(KeyMetrics),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func override(v *viper.Viper, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func (c *Config) validate() error {
	if c.Codec != "json" && c.Codec != "msgpack" {
		return fmt.Errorf("%w: %q", ErrInvalidCodec, c.Codec)
	}
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid relay URL %q: scheme must be ws or wss", c.RelayURL)
	}
	if c.ForceRelay && c.TURNServers() == nil {
		return fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	if c.SignalTimeout <= 0 {
		c.SignalTimeout = DefaultSignalTimeout
	}
	return nil
}

// RoomLink returns a shareable link for a room ID, derived from the relay host.
func (c *Config) RoomLink(roomID string) string {
	u, err := url.Parse(c.RelayURL)
	if err != nil || u.Host == "" {
		return roomID
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/combined/%s", scheme, u.Host, roomID)
}

// STUNServers returns STUN server URLs
func (c *Config) STUNServers() []string {
	if c.STUNServer == DefaultSTUN {
		return []string{DefaultSTUN, DefaultSTUNFallback}
	}
	return []string{c.STUNServer}
}

// TURNServers returns TURN server URLs if configured
func (c *Config) TURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// TURNCredentials returns TURN username and password
func (c *Config) TURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
