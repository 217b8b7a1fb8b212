package lookup

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds every single lookup request.
const DefaultTimeout = 5 * time.Second

// NewHTTPClient returns a client with a per-request timeout. When socksAddr
// is set, all connections are dialed through that SOCKS5 proxy (e.g. Tor's
// SocksPort) so lookups see the exit even without transparent routing.
func NewHTTPClient(timeout time.Duration, socksAddr string) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	if socksAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, &net.Dialer{Timeout: timeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		ctxDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer does not support contexts")
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return ctxDialer.DialContext(ctx, network, addr)
		}
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
