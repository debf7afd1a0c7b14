package config

import "sync/atomic"

// Holder is the live configuration shared by the server and the reload
// watcher. Readers get immutable snapshots; a reload swaps in a new one.
type Holder struct {
	cur  atomic.Pointer[Config]
	path string
}

// NewHolder creates a Holder serving cfg, loaded from path.
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path}
	h.cur.Store(cfg)

	return h
}

// Config returns the current snapshot. Callers must not mutate it.
func (h *Holder) Config() *Config {
	return h.cur.Load()
}

// Path is the file the config was loaded from, possibly nonexistent.
func (h *Holder) Path() string {
	return h.path
}

// RootFolderID is the current drive.root_folder_id.
func (h *Holder) RootFolderID() string {
	return h.Config().Drive.RootFolderID
}

// Update installs cfg and returns the snapshot it replaced.
func (h *Holder) Update(cfg *Config) *Config {
	return h.cur.Swap(cfg)
}
