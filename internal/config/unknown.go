package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// knownKeys lists the valid keys of every section.
var knownKeys = map[string][]string{
	"auth":    {"client_id", "client_secret", "refresh_token", "token_url"},
	"drive":   {"root_folder_id", "api_url"},
	"server":  {"listen", "read_header_timeout", "shutdown_timeout"},
	"copy":    {"poll_attempts", "poll_interval", "folder_budget", "max_depth"},
	"proxy":   {"buffer_size"},
	"logging": {"log_level", "log_format"},
	"network": {"connect_timeout", "data_timeout", "user_agent", "max_retries"},
}

// knownSections is sorted so ties between suggestions resolve the same way
// on every run.
var knownSections = slices.Sorted(maps.Keys(knownKeys))

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		errs = append(errs, unknownKeyError(key))
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one undecoded key. A key in a known section is
// matched against that section's keys; anything else against section names.
func unknownKeyError(key toml.Key) error {
	if len(key) >= 2 {
		if fields, ok := knownKeys[key[0]]; ok {
			if s, ok := suggest(key[1], fields); ok {
				return fmt.Errorf("unknown config key %q in [%s]: did you mean %q?", key[1], key[0], s)
			}

			return fmt.Errorf("unknown config key %q in [%s]", key[1], key[0])
		}
	}

	name := strings.Join(key, ".")
	if s, ok := suggest(key[0], knownSections); ok {
		return fmt.Errorf("unknown config key %q: did you mean [%s]?", name, s)
	}

	return fmt.Errorf("unknown config key %q", name)
}

// maxSuggestDistance bounds how far a typo may be from a suggestion.
const maxSuggestDistance = 3

// suggest returns the candidate nearest to word by edit distance, if any is
// within maxSuggestDistance. The first of equally near candidates wins.
func suggest(word string, candidates []string) (string, bool) {
	best, bestDist := "", maxSuggestDistance+1

	for _, c := range candidates {
		if d := editDistance(word, c); d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, best != ""
}

// editDistance is the Levenshtein distance between a and b, byte-wise.
func editDistance(a, b string) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i

		for j := 1; j <= len(b); j++ {
			above := row[j]

			sub := diag
			if a[i-1] != b[j-1] {
				sub++
			}

			row[j] = min(row[j-1]+1, above+1, sub)
			diag = above
		}
	}

	return row[len(b)]
}
