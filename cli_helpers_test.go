package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drivegate/internal/config"
	"github.com/tonimelisma/drivegate/internal/gdrive"
)

type driveFile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Size     string   `json:"size,omitempty"`
	Parents  []string `json:"parents,omitempty"`
	content  string
}

// fakeDrive serves the subset of Drive v3 the CLI touches.
type fakeDrive struct {
	mu    sync.Mutex
	files map[string]*driveFile
	next  int
}

func newFakeDrive() *fakeDrive {
	d := &fakeDrive{files: map[string]*driveFile{}}

	for _, f := range []*driveFile{
		{ID: "root", Name: "Gateway", MimeType: gdrive.FolderMimeType},
		{ID: "docs", Name: "Docs", MimeType: gdrive.FolderMimeType, Parents: []string{"root"}},
		{ID: "file-1", Name: "movie.mp4", MimeType: "video/mp4", Size: "500", Parents: []string{"root"},
			content: strings.Repeat("m", 500)},
		{ID: "shared-dir", Name: "Shared", MimeType: gdrive.FolderMimeType},
		{ID: "shared-a", Name: "a.txt", MimeType: "text/plain", Size: "1", Parents: []string{"shared-dir"}, content: "a"},
	} {
		d.files[f.ID] = f
	}

	return d
}

func (d *fakeDrive) children(parent string) []*driveFile {
	var out []*driveFile

	for _, f := range d.files {
		if len(f.Parents) > 0 && f.Parents[0] == parent {
			out = append(out, f)
		}
	}

	return out
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer access-1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/files"), "/")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/files":
		q := r.URL.Query().Get("q")
		parent := strings.TrimPrefix(q[:strings.Index(q, "' in parents")], "'")
		_ = json.NewEncoder(w).Encode(map[string]any{"files": d.children(parent)})

	case r.Method == http.MethodPost && r.URL.Path == "/files":
		var f driveFile
		_ = json.NewDecoder(r.Body).Decode(&f)
		d.next++
		f.ID = fmt.Sprintf("new-%d", d.next)
		d.files[f.ID] = &f
		_ = json.NewEncoder(w).Encode(&f)

	case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "copy":
		src, ok := d.files[parts[1]]
		if !ok {
			http.Error(w, `{"error":{"message":"File not found"}}`, http.StatusNotFound)
			return
		}

		var body struct {
			Parents []string `json:"parents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		d.next++
		cp := *src
		cp.ID = fmt.Sprintf("new-%d", d.next)
		cp.Parents = body.Parents
		d.files[cp.ID] = &cp
		_ = json.NewEncoder(w).Encode(map[string]string{"id": cp.ID})

	case r.Method == http.MethodGet && len(parts) == 2:
		f, ok := d.files[parts[1]]
		if !ok {
			http.Error(w, `{"error":{"message":"File not found"}}`, http.StatusNotFound)
			return
		}

		if r.URL.Query().Get("alt") != "media" {
			_ = json.NewEncoder(w).Encode(f)
			return
		}

		if r.Header.Get("Range") == "bytes=0-99" {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-99/%d", len(f.content)))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = io.WriteString(w, f.content[:100])

			return
		}

		_, _ = io.WriteString(w, f.content)

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("refresh_token") != "refresh-1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)

	return srv
}

// cliEnv is a config file pointing at fake Drive and token servers.
type cliEnv struct {
	drive      *fakeDrive
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	for _, k := range []string{config.EnvConfig, config.EnvClientID, config.EnvClientSecret,
		config.EnvRefreshToken, config.EnvRootFolderID, config.EnvListen} {
		t.Setenv(k, "")
	}

	drive := newFakeDrive()
	driveSrv := httptest.NewServer(drive)
	t.Cleanup(driveSrv.Close)

	tokens := newTokenServer(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
[auth]
client_id = "client-1"
client_secret = "secret-1"
refresh_token = "refresh-1"
token_url = %q

[drive]
api_url = %q

[copy]
poll_interval = "100ms"
poll_attempts = 2

[logging]
log_level = "error"
`, tokens.URL, driveSrv.URL)), 0o600))

	return &cliEnv{drive: drive, configPath: path}
}

// run executes the root command with args and returns stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.configPath, "-q"}, args...))

	err := cmd.Execute()

	return out.String(), err
}
