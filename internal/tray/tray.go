// Package tray provides the system tray front end for better-tor.
package tray

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fyne.io/systray"

	"github.com/better-ecosystem/better-tor/internal/config"
	"github.com/better-ecosystem/better-tor/internal/core"
	"github.com/better-ecosystem/better-tor/internal/logger"
	"github.com/better-ecosystem/better-tor/internal/lookup"
	"github.com/better-ecosystem/better-tor/internal/privexec"
)

// App owns the tray menu and the controller behind it.
type App struct {
	manager *config.Manager

	mu         sync.Mutex
	controller *core.Controller
	busy       bool

	cancel context.CancelFunc

	// Systray menu items
	mStatus  *systray.MenuItem
	mIP      *systray.MenuItem
	mCountry *systray.MenuItem
	mToggle  *systray.MenuItem
	mRefresh *systray.MenuItem
	mCheck   *systray.MenuItem
	mQuit    *systray.MenuItem
}

// New creates the tray app for a loaded configuration.
func New(m *config.Manager) (*App, error) {
	a := &App{manager: m}
	if err := a.rebuild(m.Get()); err != nil {
		return nil, err
	}
	return a, nil
}

// Run starts the tray and blocks until Quit is chosen.
func (a *App) Run() {
	logger.Info("better-tor tray starting")
	systray.Run(a.onReady, a.onExit)
}

// rebuild replaces the controller after a config change.
func (a *App) rebuild(cfg *config.Config) error {
	ctl, err := core.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	ctl.SetStatusListener(a.updateUI)

	a.mu.Lock()
	a.controller = ctl
	a.mu.Unlock()
	return nil
}

func (a *App) ctl() *core.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controller
}

// onReady is called when systray is ready
func (a *App) onReady() {
	systray.SetIcon(GetIcon("inactive"))
	systray.SetTitle("better-tor")
	systray.SetTooltip("better-tor: checking...")

	a.mStatus = systray.AddMenuItem("Status: checking...", "")
	a.mStatus.Disable()
	a.mIP = systray.AddMenuItem("IP: -", "")
	a.mIP.Disable()
	a.mCountry = systray.AddMenuItem("Country: -", "")
	a.mCountry.Disable()

	systray.AddSeparator()

	a.mToggle = systray.AddMenuItem("Enable Tor routing", "")
	a.mRefresh = systray.AddMenuItem("New identity", "Ask Tor for new circuits")
	a.mCheck = systray.AddMenuItem("Check status", "Re-read the firewall and public IP")

	systray.AddSeparator()

	a.mQuit = systray.AddMenuItem("Quit", "")

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.watchConfig(ctx)
	go a.doCheck()

	go func() {
		defer logger.Recover("systray-menu-loop")
		for {
			select {
			case <-a.mToggle.ClickedCh:
				go a.doToggle()
			case <-a.mRefresh.ClickedCh:
				go a.doRefresh()
			case <-a.mCheck.ClickedCh:
				go a.doCheck()
			case <-a.mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when systray exits
func (a *App) onExit() {
	logger.Info("better-tor tray shutting down")
	if a.cancel != nil {
		a.cancel()
	}
}

// watchConfig rebuilds the controller whenever the config file changes.
func (a *App) watchConfig(ctx context.Context) {
	w, err := config.NewWatcher(a.manager, func(cfg *config.Config) {
		if err := a.rebuild(cfg); err != nil {
			logger.Error("Failed to apply new config: %v", err)
			return
		}
		logger.Info("Configuration reloaded")
		go a.doCheck()
	}, func(err error) {
		logger.Warning("Config reload failed: %v", err)
	})
	if err != nil {
		logger.Warning("Config watcher unavailable: %v", err)
		return
	}
	logger.SafeGo("config-watcher", func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Config watcher stopped: %v", err)
		}
	})
}

// begin marks a privileged operation in progress; false if one already is.
func (a *App) begin(label string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return false
	}
	a.busy = true

	a.mToggle.Disable()
	a.mRefresh.Disable()
	a.mCheck.Disable()
	a.mStatus.SetTitle("Status: " + label)
	systray.SetIcon(GetIcon("busy"))
	return true
}

func (a *App) end() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()

	a.mToggle.Enable()
	a.mRefresh.Enable()
	a.mCheck.Enable()
}

func (a *App) doToggle() {
	defer logger.Recover("doToggle")
	if !a.begin("switching...") {
		return
	}
	defer a.end()

	state, err := a.ctl().Toggle(context.Background())
	if err != nil {
		showError("Toggle failed", err)
		// The helper's effect is unknown; read the table back.
		a.ctl().Inspect(context.Background())
		return
	}
	logger.Info("Tor routing is now %s", state)
	a.resolveIP()
}

func (a *App) doRefresh() {
	defer logger.Recover("doRefresh")
	if !a.begin("requesting new identity...") {
		return
	}
	defer a.end()

	if err := a.ctl().Refresh(context.Background()); err != nil {
		showError("New identity failed", err)
		a.ctl().Inspect(context.Background())
		return
	}
	a.ctl().Inspect(context.Background())
	a.resolveIP()
}

func (a *App) doCheck() {
	defer logger.Recover("doCheck")
	if !a.begin("checking...") {
		return
	}
	defer a.end()

	a.ctl().Inspect(context.Background())
	a.resolveIP()
}

func (a *App) resolveIP() {
	a.mIP.SetTitle("IP: resolving...")
	a.mCountry.SetTitle("Country: -")

	info := a.ctl().ResolvePublicIP(context.Background())
	a.mIP.SetTitle(ipTitle(info))
	a.mCountry.SetTitle("Country: " + info.Country)
	systray.SetTooltip(fmt.Sprintf("better-tor\nIP: %s\nCountry: %s", info.IP, info.Country))
}

func (a *App) updateUI(status *core.StatusPayload) {
	defer logger.Recover("updateUI")

	if status == nil || a.mStatus == nil {
		return
	}

	title, icon := statusView(status)
	a.mStatus.SetTitle(title)
	systray.SetIcon(GetIcon(icon))

	// A failure payload claims no state; keep the toggle label until the
	// table is read again.
	switch status.State {
	case core.StateActive:
		a.mToggle.SetTitle("Disable Tor routing")
	case core.StateInactive:
		a.mToggle.SetTitle("Enable Tor routing")
	}
}

// statusView returns the status menu title and icon name for a payload.
func statusView(status *core.StatusPayload) (title, icon string) {
	switch {
	case status.Error != "":
		return "Status: unknown (last action failed)", "error"
	case status.State == core.StateActive:
		return "Status: routing through Tor", "active"
	default:
		return "Status: not anonymized", "inactive"
	}
}

func ipTitle(info lookup.Info) string {
	if info.IsTor {
		return "IP: " + info.IP + " (Tor exit)"
	}
	return "IP: " + info.IP
}

func showError(action string, err error) {
	var helperErr *privexec.HelperError
	if errors.As(err, &helperErr) {
		logger.Error("%s: exit status %d\n%s", action, helperErr.ExitCode, helperErr.Stderr)
	} else {
		logger.Error("%s: %v", action, err)
	}
	systray.SetTooltip(fmt.Sprintf("better-tor\n%s: %v", action, err))
}
