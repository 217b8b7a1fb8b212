package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("invalid config version")
	}
	if err := c.Firewall.Validate(); err != nil {
		return fmt.Errorf("firewall config: %w", err)
	}
	if err := c.Elevation.Validate(); err != nil {
		return fmt.Errorf("elevation config: %w", err)
	}
	if err := c.Lookup.Validate(); err != nil {
		return fmt.Errorf("lookup config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

// Validate validates firewall configuration.
func (f *Firewall) Validate() error {
	if f.Iptables == "" {
		return fmt.Errorf("iptables is required")
	}
	if f.Table == "" {
		return fmt.Errorf("table is required")
	}
	if f.TransPort < 1 || f.TransPort > 65535 {
		return fmt.Errorf("trans_port must be between 1 and 65535")
	}
	return nil
}

// Validate validates elevation configuration.
func (e *Elevation) Validate() error {
	switch e.Wrapper {
	case WrapperAuto, WrapperPkexec, WrapperSudo, WrapperNone:
	default:
		return fmt.Errorf("unknown wrapper: %s", e.Wrapper)
	}
	if e.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Validate validates lookup configuration.
func (l *Lookup) Validate() error {
	for name, raw := range map[string]string{
		"exit_ip_url": l.ExitIPURL,
		"echo_ip_url": l.EchoIPURL,
		"country_url": l.CountryURL,
		"geo_url":     l.GeoURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if !strings.Contains(l.CountryURL, "{ip}") {
		return fmt.Errorf("country_url must contain {ip}")
	}
	if !strings.Contains(l.GeoURL, "{ip}") {
		return fmt.Errorf("geo_url must contain {ip}")
	}
	if l.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1")
	}
	if l.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative")
	}
	if l.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if l.SocksProxy != "" {
		if _, _, err := net.SplitHostPort(l.SocksProxy); err != nil {
			return fmt.Errorf("invalid socks_proxy: %w", err)
		}
	}
	return nil
}

// Validate validates log configuration.
func (l *Log) Validate() error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown level: %s", l.Level)
	}
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(strings.ReplaceAll(raw, "{ip}", "0.0.0.0"))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
