// Package lookup resolves the public IP address and country the outside
// world currently sees, trying redundant endpoints in a fixed order.
package lookup

import (
	"context"
	"time"

	"github.com/better-ecosystem/better-tor/internal/config"
	"github.com/better-ecosystem/better-tor/internal/logger"
)

const (
	// IPUnavailable is reported when no IP source produced an address.
	IPUnavailable = "Error obtaining IP"
	// CountryUnknown is reported when no country source succeeded.
	CountryUnknown = "Unknown"

	DefaultAttempts   = 12
	DefaultRetryDelay = 5 * time.Second
)

// Info is the outcome of a resolution. IP and Country always hold either a
// value or their sentinel.
type Info struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	Source  string `json:"source,omitempty"`
	IsTor   bool   `json:"is_tor"`
}

// Resolved reports whether an address was obtained.
func (i Info) Resolved() bool {
	return i.IP != IPUnavailable
}

// Resolver runs the primary source with retries, then the fallback, then the
// country sources in order. Every failed primary attempt except the last is
// followed by Delay, whether it failed in transport, on a non-2xx status or
// on a malformed payload. A primary implementing ExitChecker also reports
// IsTor.
type Resolver struct {
	Primary   IPSource
	Fallback  IPSource
	Countries []CountrySource

	Attempts int
	Delay    time.Duration

	// Sleep waits between failed primary attempts. It returns early with the
	// context's error when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver builds the HTTP resolver described by cfg.
func NewResolver(cfg config.Lookup) (*Resolver, error) {
	client, err := NewHTTPClient(cfg.RequestTimeout, cfg.SocksProxy)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		Primary:  &TorCheck{URL: cfg.ExitIPURL, Client: client},
		Fallback: &PlainIP{URL: cfg.EchoIPURL, Client: client},
		Countries: []CountrySource{
			&PlainCountry{URL: cfg.CountryURL, Client: client},
			&GeoJSON{URL: cfg.GeoURL, Client: client},
		},
		Attempts: cfg.Attempts,
		Delay:    cfg.RetryDelay,
	}, nil
}

// Resolve never fails; unavailable values are reported as sentinels.
func (r *Resolver) Resolve(ctx context.Context) Info {
	info := Info{IP: IPUnavailable, Country: CountryUnknown}

	if ip, isTor, src, ok := r.resolveIP(ctx); ok {
		info.IP = ip
		info.IsTor = isTor
		info.Source = src
	} else {
		return info
	}

	log := logger.With("lookup")
	for _, src := range r.Countries {
		if src == nil {
			continue
		}
		country, err := src.Country(ctx, info.IP)
		if err != nil {
			log.Debug("country lookup failed", "source", src.Name(), "err", err)
			continue
		}
		info.Country = country
		break
	}
	return info
}

func (r *Resolver) resolveIP(ctx context.Context) (ip string, isTor bool, source string, ok bool) {
	log := logger.With("lookup")

	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	if r.Primary != nil {
		for attempt := 1; attempt <= attempts; attempt++ {
			var err error
			if checker, isChecker := r.Primary.(ExitChecker); isChecker {
				var resp TorCheckResponse
				resp, err = checker.Check(ctx)
				ip, isTor = resp.IP, resp.IsTor
			} else {
				ip, err = r.Primary.PublicIP(ctx)
			}
			if err == nil && ip != "" {
				return ip, isTor, r.Primary.Name(), true
			}
			log.Debug("primary ip lookup failed",
				"source", r.Primary.Name(), "attempt", attempt, "of", attempts, "err", err)

			if attempt == attempts {
				break
			}
			if err := sleep(ctx, r.Delay); err != nil {
				log.Debug("ip lookup retries abandoned", "err", err)
				break
			}
		}
	}

	if r.Fallback != nil {
		ip, err := r.Fallback.PublicIP(ctx)
		if err == nil && ip != "" {
			return ip, false, r.Fallback.Name(), true
		}
		log.Warn("fallback ip lookup failed", "source", r.Fallback.Name(), "err", err)
	}
	return "", false, "", false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
