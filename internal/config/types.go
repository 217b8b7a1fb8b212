// Package config handles better-tor configuration loading, saving, and validation.
package config

import "time"

// Wrapper selects the privilege-escalation mechanism.
type Wrapper string

const (
	WrapperAuto   Wrapper = "auto"
	WrapperPkexec Wrapper = "pkexec"
	WrapperSudo   Wrapper = "sudo"
	WrapperNone   Wrapper = "none"
)

// Config represents the main configuration structure.
type Config struct {
	Version   int       `yaml:"version"`
	Helper    Helper    `yaml:"helper"`
	Firewall  Firewall  `yaml:"firewall"`
	Elevation Elevation `yaml:"elevation"`
	Lookup    Lookup    `yaml:"lookup"`
	Log       Log       `yaml:"log"`
}

// Helper locates the privileged helper script.
type Helper struct {
	Path        string `yaml:"path,omitempty"`        // pre-installed helper; empty = stage the embedded copy
	Dir         string `yaml:"dir,omitempty"`         // staging directory, empty = user cache dir
	Interpreter string `yaml:"interpreter,omitempty"` // e.g. "python3" for a script without shebang
}

// Firewall describes how the live NAT table is read.
type Firewall struct {
	Iptables  string `yaml:"iptables"`
	Table     string `yaml:"table"`
	TransPort int    `yaml:"trans_port"` // must match the helper's TransPort
}

// Elevation configures the privilege wrapper.
type Elevation struct {
	Wrapper Wrapper       `yaml:"wrapper"`
	Timeout time.Duration `yaml:"timeout"`
}

// Lookup configures the public IP and geolocation endpoints.
type Lookup struct {
	ExitIPURL      string        `yaml:"exit_ip_url"`
	EchoIPURL      string        `yaml:"echo_ip_url"`
	CountryURL     string        `yaml:"country_url"` // {ip} is replaced
	GeoURL         string        `yaml:"geo_url"`     // {ip} is replaced
	Attempts       int           `yaml:"attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SocksProxy     string        `yaml:"socks_proxy,omitempty"` // host:port, empty = direct
}

// Log configures the log file and console output.
type Log struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file,omitempty"`
	Console bool   `yaml:"console"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Helper:  Helper{},
		Firewall: Firewall{
			Iptables:  "iptables",
			Table:     "nat",
			TransPort: 9040,
		},
		Elevation: Elevation{
			Wrapper: WrapperAuto,
			Timeout: 2 * time.Minute,
		},
		Lookup: Lookup{
			ExitIPURL:      "https://check.torproject.org/api/ip",
			EchoIPURL:      "https://ident.me",
			CountryURL:     "https://ipapi.co/{ip}/country_name/",
			GeoURL:         "http://ip-api.com/json/{ip}",
			Attempts:       12,
			RetryDelay:     5 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
	}
}
