// Package testutil holds environment helpers for the e2e suite. It imports
// only the standard library so the suite can use it without pulling the
// gateway's internal packages into the test binary.
package testutil

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv exports KEY=VALUE lines from path into the process
// environment. Variables that are already set win, so CI can override a
// developer's .env. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)

	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%s:%d: expected KEY=VALUE", path, lineNo)
		}

		key = strings.TrimSpace(key)
		if _, set := os.LookupEnv(key); set {
			continue
		}

		if err := os.Setenv(key, unquote(strings.TrimSpace(value))); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}

	return sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}

	return v
}

// RequireEnv returns the values of the named variables, exiting the process
// with the full list of missing ones.
func RequireEnv(names ...string) map[string]string {
	values := make(map[string]string, len(names))

	var missing []string

	for _, n := range names {
		v := os.Getenv(n)
		if v == "" {
			missing = append(missing, n)
		}

		values[n] = v
	}

	if len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "FATAL: required variables not set: %s\n", strings.Join(missing, ", "))
		fmt.Fprintln(os.Stderr, "Set them in .env or as environment variables.")
		os.Exit(1)
	}

	return values
}

// ValidateAllowlist exits the process unless the folder named by rootEnvVar
// appears in DRIVEGATE_ALLOWED_TEST_ROOTS. E2E tests copy into that folder,
// so it must never be a real user's root by accident.
func ValidateAllowlist(rootEnvVar string) {
	allowlist := os.Getenv("DRIVEGATE_ALLOWED_TEST_ROOTS")
	if allowlist == "" {
		fmt.Fprintln(os.Stderr, "FATAL: DRIVEGATE_ALLOWED_TEST_ROOTS not set")
		fmt.Fprintln(os.Stderr, "Example: DRIVEGATE_ALLOWED_TEST_ROOTS=1AbCdEfGhIjKlMnOp")
		os.Exit(1)
	}

	if !inAllowlist(os.Getenv(rootEnvVar), allowlist) {
		fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in DRIVEGATE_ALLOWED_TEST_ROOTS=%q\n",
			rootEnvVar, os.Getenv(rootEnvVar), allowlist)
		os.Exit(1)
	}
}

func inAllowlist(root, allowlist string) bool {
	if root == "" {
		return false
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == root {
			return true
		}
	}

	return false
}

// ModuleRoot is the nearest ancestor of the working directory holding
// go.mod.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for ; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		if dir == filepath.Dir(dir) {
			return "", errors.New("go.mod not found above working directory")
		}
	}
}

// FreeAddr returns a loopback address with a port that was free a moment ago.
func FreeAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer ln.Close()

	return ln.Addr().String(), nil
}
