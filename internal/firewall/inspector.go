package firewall

import (
	"context"

	"github.com/better-ecosystem/better-tor/internal/logger"
	"github.com/better-ecosystem/better-tor/internal/privexec"
)

// Prober lists the live NAT table. privexec.Executor satisfies it.
type Prober interface {
	Probe(ctx context.Context) (privexec.Invocation, error)
}

// Inspector decides whether anonymized routing is active.
type Inspector struct {
	prober Prober
	port   int
}

// NewInspector creates an Inspector looking for a redirect to port. A
// non-positive port selects DefaultTransPort.
func NewInspector(p Prober, port int) *Inspector {
	if port <= 0 {
		port = DefaultTransPort
	}
	return &Inspector{prober: p, port: port}
}

// Port returns the transparent-proxy port the inspector matches.
func (i *Inspector) Port() int {
	return i.port
}

// Active reads the live table and reports whether a redirect to the
// transparent-proxy port is present. It never fails: any problem reading
// the table reports false, so a broken probe can never claim anonymity.
func (i *Inspector) Active(ctx context.Context) bool {
	log := logger.With("firewall")

	inv, err := i.prober.Probe(ctx)
	if err != nil {
		log.Warn("nat table probe failed, reporting inactive", "err", err)
		return false
	}
	if !inv.ExitSuccess {
		log.Warn("nat table probe exited non-zero, reporting inactive",
			"exit_code", inv.ExitCode, "stderr", inv.Stderr)
		return false
	}
	return HasRedirect(inv.Stdout, i.port)
}
