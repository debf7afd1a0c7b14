package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivegate/internal/config"
)

const redacted = "<redacted>"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	shown := redactSecrets(resolvedCfg)

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), shown)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# effective configuration (file: %s)\n", resolvedPath)

	if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(shown); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}

// redactSecrets returns a copy of cfg with credential values masked. Unset
// values stay empty so a missing credential is still visible.
func redactSecrets(cfg *config.Config) config.Config {
	out := *cfg

	for _, s := range []*string{&out.Auth.ClientSecret, &out.Auth.RefreshToken} {
		if *s != "" {
			*s = redacted
		}
	}

	return out
}
