package gui

import (
	"fmt"
	"log/slog"
	"sync"

	. "modernc.org/tk9.0"

	"github.com/thiagokokada/gitlanes/internal/watch"
)

type autoReloadState struct {
	mu         sync.Mutex
	configured bool
	enabled    bool
	watcher    *watch.Watcher
}

func (a *Controller) initAutoReload(requested bool) {
	a.state.watch.mu.Lock()
	a.state.watch.configured = requested
	a.state.watch.mu.Unlock()
	if requested {
		if err := a.enableAutoReload(); err != nil {
			slog.Error("auto reload disabled", slog.Any("error", err))
			a.state.watch.mu.Lock()
			a.state.watch.configured = false
			a.state.watch.mu.Unlock()
		}
	}
	a.updateReloadButtonLabel()
}

func (a *Controller) enableAutoReload() error {
	a.state.watch.mu.Lock()
	defer a.state.watch.mu.Unlock()
	if !a.state.watch.configured || a.state.watch.enabled {
		return nil
	}
	w, err := watch.Start(a.repo.path, a.cfg.watch, func() {
		slog.Debug("auto reload triggered")
		a.coord.RequestRefresh(a.ctx)
	})
	if err != nil {
		return err
	}
	a.state.watch.watcher = w
	a.state.watch.enabled = true
	return nil
}

func (a *Controller) disableAutoReload() {
	a.state.watch.mu.Lock()
	defer a.state.watch.mu.Unlock()
	if a.state.watch.watcher != nil {
		if err := a.state.watch.watcher.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
		a.state.watch.watcher = nil
	}
	a.state.watch.enabled = false
}

func reloadButtonLabel(configured, enabled bool) string {
	if !configured {
		return "Reload"
	}
	state := "Off"
	if enabled {
		state = "On"
	}
	return fmt.Sprintf("Reload (Auto %s)", state)
}

func (a *Controller) updateReloadButtonLabel() {
	if a.ui.reloadButton == nil {
		return
	}
	a.state.watch.mu.Lock()
	label := reloadButtonLabel(a.state.watch.configured, a.state.watch.enabled)
	a.state.watch.mu.Unlock()
	a.ui.reloadButton.Configure(Txt(label))
}

// onReloadButton toggles auto reload when it was requested at startup and
// reloads either way.
func (a *Controller) onReloadButton() {
	a.state.watch.mu.Lock()
	configured := a.state.watch.configured
	enabled := a.state.watch.enabled
	a.state.watch.mu.Unlock()
	if configured {
		if enabled {
			a.disableAutoReload()
		} else if err := a.enableAutoReload(); err != nil {
			slog.Error("auto reload enable failed", slog.Any("error", err))
		}
		a.updateReloadButtonLabel()
	}
	a.reload()
}
