package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/better-ecosystem/better-tor/internal/privexec"
)

const (
	// maxBody caps how much of any lookup response is read.
	maxBody   = 64 << 10
	// maxDetail caps response text quoted in errors.
	maxDetail = 64
)

// ErrMalformed marks a response that arrived but carried no usable value.
var ErrMalformed = errors.New("malformed response")

// IPSource reports the public address seen by a remote service.
type IPSource interface {
	Name() string
	PublicIP(ctx context.Context) (string, error)
}

// CountrySource maps an address to a country name.
type CountrySource interface {
	Name() string
	Country(ctx context.Context, ip string) (string, error)
}

// TorCheck queries a check.torproject.org style JSON endpoint.
type TorCheck struct {
	URL    string
	Client *http.Client
}

// ExitChecker is implemented by IP sources that also report whether the
// address is a Tor exit.
type ExitChecker interface {
	Check(ctx context.Context) (TorCheckResponse, error)
}

// TorCheckResponse is the payload of the exit-confirmation endpoint.
type TorCheckResponse struct {
	IsTor bool   `json:"IsTor"`
	IP    string `json:"IP"`
}

func (s *TorCheck) Name() string { return hostOf(s.URL) }

// PublicIP returns the IP field of the response.
func (s *TorCheck) PublicIP(ctx context.Context) (string, error) {
	resp, err := s.Check(ctx)
	if err != nil {
		return "", err
	}
	return resp.IP, nil
}

// Check returns the whole response, including whether the caller exits
// through Tor.
func (s *TorCheck) Check(ctx context.Context) (TorCheckResponse, error) {
	var out TorCheckResponse
	body, err := get(ctx, s.Client, s.URL)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out.IP = strings.TrimSpace(out.IP)
	if _, err := netip.ParseAddr(out.IP); err != nil {
		return out, fmt.Errorf("%w: IP field %q", ErrMalformed, out.IP)
	}
	return out, nil
}

// PlainIP queries an endpoint that echoes the caller's address as text.
type PlainIP struct {
	URL    string
	Client *http.Client
}

func (s *PlainIP) Name() string { return hostOf(s.URL) }

// PublicIP returns the trimmed body, which must parse as an IP address.
func (s *PlainIP) PublicIP(ctx context.Context) (string, error) {
	body, err := get(ctx, s.Client, s.URL)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if _, err := netip.ParseAddr(ip); err != nil {
		return "", fmt.Errorf("%w: %q is not an IP address", ErrMalformed, privexec.Excerpt(ip, maxDetail))
	}
	return ip, nil
}

// PlainCountry queries a text endpoint; URL contains {ip}.
type PlainCountry struct {
	URL    string
	Client *http.Client
}

func (s *PlainCountry) Name() string { return hostOf(s.URL) }

// Country returns the trimmed body unless it is empty or an error marker.
func (s *PlainCountry) Country(ctx context.Context, ip string) (string, error) {
	body, err := get(ctx, s.Client, withIP(s.URL, ip))
	if err != nil {
		return "", err
	}
	country := strings.TrimSpace(string(body))
	if country == "" || strings.Contains(strings.ToLower(country), "error") {
		return "", fmt.Errorf("%w: %q", ErrMalformed, privexec.Excerpt(country, maxDetail))
	}
	return country, nil
}

// GeoJSON queries an ip-api.com style endpoint; URL contains {ip}.
type GeoJSON struct {
	URL    string
	Client *http.Client
}

type geoResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	Message string `json:"message"`
}

func (s *GeoJSON) Name() string { return hostOf(s.URL) }

// Country returns the country field when status reports success.
func (s *GeoJSON) Country(ctx context.Context, ip string) (string, error) {
	body, err := get(ctx, s.Client, withIP(s.URL, ip))
	if err != nil {
		return "", err
	}
	var out geoResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if out.Status != "success" {
		return "", fmt.Errorf("%w: status %q %s", ErrMalformed, out.Status, out.Message)
	}
	country := strings.TrimSpace(out.Country)
	if country == "" {
		return "", fmt.Errorf("%w: empty country", ErrMalformed)
	}
	return country, nil
}

func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "better-tor")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected status %s", hostOf(rawURL), resp.Status)
	}
	return body, nil
}

func withIP(template, ip string) string {
	return strings.ReplaceAll(template, "{ip}", url.PathEscape(ip))
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
