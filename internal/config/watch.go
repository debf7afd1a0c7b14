package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events an editor's save produces.
const reloadDebounce = 250 * time.Millisecond

// ReloadFunc re-resolves the full configuration, overrides included.
type ReloadFunc func() (*Config, error)

// Watch reloads the config file whenever it changes until ctx is canceled.
// The parent directory is watched rather than the file so atomic
// rename-over saves are seen. A reload that fails to parse or validate is
// logged and the previous config stays in effect. onReload, if non-nil, is
// called with the old and new config after each successful swap.
func Watch(ctx context.Context, h *Holder, reload ReloadFunc, onReload func(old, cur *Config), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(h.Path())
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		logger.Info("config directory absent, live reload disabled", slog.String("dir", dir))
		<-ctx.Done()

		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	logger.Debug("watching config file", slog.String("path", h.Path()))

	target := filepath.Clean(h.Path())

	// Stopped timer; armed by the first relevant event.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target || (ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write)) {
				continue
			}

			debounce.Reset(reloadDebounce)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", werr.Error()))

		case <-debounce.C:
			applyReload(h, reload, onReload, logger)
		}
	}
}

func applyReload(h *Holder, reload ReloadFunc, onReload func(old, cur *Config), logger *slog.Logger) {
	cfg, err := reload()
	if err != nil {
		logger.Warn("config reload failed, keeping previous config",
			slog.String("path", h.Path()),
			slog.String("error", err.Error()),
		)

		return
	}

	old := h.Update(cfg)

	logger.Info("config reloaded", slog.String("path", h.Path()))

	for _, section := range RestartRequired(old, cfg) {
		logger.Warn("config change requires restart to take effect", slog.String("section", section))
	}

	if onReload != nil {
		onReload(old, cfg)
	}
}

// RestartRequired lists the sections that differ between old and cur in
// ways a running gateway does not pick up. logging.log_level and
// drive.root_folder_id apply live and are ignored.
func RestartRequired(old, cur *Config) []string {
	var sections []string

	oldDrive, curDrive := old.Drive, cur.Drive
	oldDrive.RootFolderID, curDrive.RootFolderID = "", ""

	oldLog, curLog := old.Logging, cur.Logging
	oldLog.LogLevel, curLog.LogLevel = "", ""

	for _, c := range []struct {
		name    string
		changed bool
	}{
		{"auth", old.Auth != cur.Auth},
		{"drive", oldDrive != curDrive},
		{"server", old.Server != cur.Server},
		{"copy", old.Copy != cur.Copy},
		{"proxy", old.Proxy != cur.Proxy},
		{"logging", oldLog != curLog},
		{"network", old.Network != cur.Network},
	} {
		if c.changed {
			sections = append(sections, c.name)
		}
	}

	return sections
}
