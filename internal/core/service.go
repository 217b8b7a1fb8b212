// Package core provides the caller-facing controller that inspects and
// toggles anonymized routing and resolves the public address.
package core

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/better-ecosystem/better-tor/internal/config"
	"github.com/better-ecosystem/better-tor/internal/elevate"
	"github.com/better-ecosystem/better-tor/internal/firewall"
	"github.com/better-ecosystem/better-tor/internal/helper"
	"github.com/better-ecosystem/better-tor/internal/lookup"
	"github.com/better-ecosystem/better-tor/internal/privexec"
)

// IPResolver resolves the public address. *lookup.Resolver implements it.
type IPResolver interface {
	Resolve(ctx context.Context) lookup.Info
}

// Controller serializes toggles and reports the live anonymization state.
type Controller struct {
	exec      privexec.Executor
	inspector *firewall.Inspector
	resolver  IPResolver

	// gate admits one privileged operation at a time.
	gate *semaphore.Weighted

	mu             sync.RWMutex
	last           *StatusPayload
	statusListener StatusListener
}

// New creates a Controller. port is the transparent-proxy port the helper
// redirects to; zero selects firewall.DefaultTransPort.
func New(exec privexec.Executor, resolver IPResolver, port int) *Controller {
	return &Controller{
		exec:      exec,
		inspector: firewall.NewInspector(exec, port),
		resolver:  resolver,
		gate:      semaphore.NewWeighted(1),
	}
}

// NewFromConfig wires the real executor, helper and lookup endpoints.
func NewFromConfig(cfg *config.Config) (*Controller, error) {
	var loc helper.Locator
	if cfg.Helper.Path != "" {
		loc = helper.Preinstalled{Path: cfg.Helper.Path}
	} else {
		loc = helper.NewStager(cfg.Helper.Dir)
	}

	runner := privexec.NewRunner(elevate.New(cfg.Elevation.Wrapper), loc, privexec.Options{
		Interpreter: cfg.Helper.Interpreter,
		Iptables:    cfg.Firewall.Iptables,
		Table:       cfg.Firewall.Table,
		Timeout:     cfg.Elevation.Timeout,
	})

	resolver, err := lookup.NewResolver(cfg.Lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to create ip resolver: %w", err)
	}

	return New(runner, resolver, cfg.Firewall.TransPort), nil
}

// SetStatusListener sets a callback that will be called on every status change.
func (c *Controller) SetStatusListener(listener StatusListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusListener = listener
}

// Port returns the transparent-proxy port the controller inspects.
func (c *Controller) Port() int {
	return c.inspector.Port()
}

// ResolvePublicIP reports the address and country seen from outside. It
// does not take the gate and never fails.
func (c *Controller) ResolvePublicIP(ctx context.Context) lookup.Info {
	if c.resolver == nil {
		return lookup.Info{IP: lookup.IPUnavailable, Country: lookup.CountryUnknown}
	}
	return c.resolver.Resolve(ctx)
}
