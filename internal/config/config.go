package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

const (
	DefaultBrokerPort = 1883
	maxTopicLength    = 255
	maxServerName     = 255
	topicChars        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._-/"
)

// TapConfig configures where captured transactions are published.
type TapConfig struct {
	ServerName        string
	Topic             string
	Brokers           []string
	SourceAddress     string
	ClientID          string
	QoS               int
	ReconnectInterval time.Duration
	// MaxReconnectInterval caps the reconnect gap as it doubles after
	// consecutive failures.
	MaxReconnectInterval time.Duration
	PublishTimeout       time.Duration
	MetricsAddr          string
}

type fileConfig struct {
	ServerName        string   `toml:"server_name"`
	Topic             string   `toml:"topic"`
	Brokers           []string `toml:"brokers"`
	SourceAddress     string   `toml:"source_address"`
	ClientID          string   `toml:"client_id"`
	QoS               int      `toml:"qos"`
	ReconnectInterval string   `toml:"reconnect_interval"`
	MaxReconnect      string   `toml:"max_reconnect_interval"`
	PublishTimeout    string   `toml:"publish_timeout"`
	MetricsAddr       string   `toml:"metrics_addr"`
}

// ValidationError names the config key that failed validation.
type ValidationError struct {
	Key    string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

func DefaultTapConfig() TapConfig {
	return TapConfig{
		ServerName:           defaultServerName(),
		ClientID:             "dhcptap-" + uuid.NewString(),
		QoS:                  1,
		ReconnectInterval:    5 * time.Second,
		MaxReconnectInterval: time.Minute,
		PublishTimeout:       5 * time.Second,
	}
}

// LoadTapConfig reads a TOML file over DefaultTapConfig; keys absent from the
// file keep their defaults.
func LoadTapConfig(path string) (TapConfig, error) {
	cfg := DefaultTapConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return TapConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return TapConfig{}, ValidationError{Key: undecoded[0].String(), Reason: "unknown key"}
	}

	if meta.IsDefined("server_name") {
		if name := strings.TrimSpace(raw.ServerName); name != "" {
			cfg.ServerName = name
		}
	}
	if meta.IsDefined("topic") {
		cfg.Topic = strings.TrimSpace(raw.Topic)
	}
	if meta.IsDefined("brokers") {
		cfg.Brokers = raw.Brokers
	}
	if meta.IsDefined("source_address") {
		cfg.SourceAddress = strings.TrimSpace(raw.SourceAddress)
	}
	if meta.IsDefined("client_id") {
		if id := strings.TrimSpace(raw.ClientID); id != "" {
			cfg.ClientID = id
		}
	}
	if meta.IsDefined("qos") {
		cfg.QoS = raw.QoS
	}
	if meta.IsDefined("reconnect_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReconnectInterval))
		if err != nil {
			return TapConfig{}, fmt.Errorf("parse reconnect_interval: %w", err)
		}
		cfg.ReconnectInterval = d
	}
	if meta.IsDefined("max_reconnect_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.MaxReconnect))
		if err != nil {
			return TapConfig{}, fmt.Errorf("parse max_reconnect_interval: %w", err)
		}
		cfg.MaxReconnectInterval = d
	} else {
		cfg.MaxReconnectInterval = max(cfg.MaxReconnectInterval, cfg.ReconnectInterval)
	}
	if meta.IsDefined("publish_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PublishTimeout))
		if err != nil {
			return TapConfig{}, fmt.Errorf("parse publish_timeout: %w", err)
		}
		cfg.PublishTimeout = d
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if err := ValidateTapConfig(cfg); err != nil {
		return TapConfig{}, err
	}
	return cfg, nil
}

func ValidateTapConfig(cfg TapConfig) error {
	if len(cfg.ServerName) > maxServerName {
		return ValidationError{Key: "server_name", Reason: fmt.Sprintf("must be %d bytes or less", maxServerName)}
	}
	if err := ValidateTopicName(cfg.Topic); err != nil {
		return err
	}
	if len(cfg.Brokers) == 0 {
		return ValidationError{Key: "brokers", Reason: "at least one broker is required"}
	}
	for i, b := range cfg.Brokers {
		if _, err := NormalizeBroker(b); err != nil {
			return fmt.Errorf("brokers[%d] invalid: %w", i, err)
		}
	}
	if cfg.SourceAddress != "" && net.ParseIP(cfg.SourceAddress) == nil {
		return ValidationError{Key: "source_address", Reason: "must be an IP address"}
	}
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return ValidationError{Key: "qos", Reason: "must be 0, 1 or 2"}
	}
	if cfg.ReconnectInterval <= 0 {
		return ValidationError{Key: "reconnect_interval", Reason: "must be positive"}
	}
	if cfg.MaxReconnectInterval < cfg.ReconnectInterval {
		return ValidationError{Key: "max_reconnect_interval", Reason: "must be at least reconnect_interval"}
	}
	if cfg.PublishTimeout <= 0 {
		return ValidationError{Key: "publish_timeout", Reason: "must be positive"}
	}
	return nil
}

// ValidateTopicName accepts 1-255 characters from letters, digits, '.', '_',
// '-' and '/', excluding the names "." and "..".
func ValidateTopicName(name string) error {
	switch name {
	case "", ".", "..":
		return ValidationError{Key: "topic", Reason: "can not be empty, '.' or '..'"}
	}
	if len(name) > maxTopicLength {
		return ValidationError{Key: "topic", Reason: fmt.Sprintf("must be %d characters or less", maxTopicLength)}
	}
	for _, r := range name {
		if !strings.ContainsRune(topicChars, r) {
			return ValidationError{Key: "topic", Reason: fmt.Sprintf("invalid character %q", r)}
		}
	}
	return nil
}

// NormalizeBroker turns "host", "host:port", "v6addr" or "[v6addr]:port" into
// a tcp:// URL, adding DefaultBrokerPort when no port is given.
func NormalizeBroker(entry string) (string, error) {
	entry = strings.TrimSpace(entry)
	entry = strings.TrimPrefix(entry, "tcp://")
	if entry == "" {
		return "", ValidationError{Key: "brokers", Reason: "empty broker address"}
	}

	host, port := entry, ""
	if h, p, err := net.SplitHostPort(entry); err == nil {
		host, port = h, p
	} else if strings.HasPrefix(entry, "[") && strings.HasSuffix(entry, "]") {
		host = strings.Trim(entry, "[]")
	} else if strings.Count(entry, ":") == 1 {
		return "", ValidationError{Key: "brokers", Reason: fmt.Sprintf("invalid address %q", entry)}
	}
	if host == "" {
		return "", ValidationError{Key: "brokers", Reason: fmt.Sprintf("missing host in %q", entry)}
	}
	if port == "" {
		port = strconv.Itoa(DefaultBrokerPort)
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", ValidationError{Key: "brokers", Reason: fmt.Sprintf("invalid port %q", port)}
	}
	return "tcp://" + net.JoinHostPort(host, port), nil
}

// BrokerURLs normalizes every configured broker.
func (c TapConfig) BrokerURLs() ([]string, error) {
	out := make([]string, 0, len(c.Brokers))
	for _, b := range c.Brokers {
		u, err := NormalizeBroker(b)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func defaultServerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	if len(host) > maxServerName {
		return host[:maxServerName]
	}
	return host
}
