package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pantrywisely/pantry/internal/paths"
	"github.com/pantrywisely/pantry/internal/seed"
)

func newInitCmd(a *app) *cobra.Command {
	var withSeed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize pantry storage",
		Long: `Create the configuration directory and config.yaml if missing, then open
the configured store once so its tables or files exist. With --seed a few
demo items are written to both collections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.configDir, 0o755); err != nil {
				return sysError("create config directory: %w", err)
			}

			backend := a.config.GetString(cfgKeyBackend)
			if a.flags.backend != "" {
				backend = a.flags.backend
			}
			written, err := writeConfigIfMissing(paths.ConfigFile(a.configDir), configFile{
				Backend:  backend,
				DataDir:  a.flags.dataDir,
				LogLevel: a.config.GetString(cfgKeyLogLevel),
			})
			if err != nil {
				return sysError("write config: %w", err)
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", paths.ConfigFile(a.configDir))
			}

			repo, err := a.repo(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if withSeed {
				n, err := seed.Seed(cmd.Context(), repo)
				if err != nil {
					return sysError("seed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d items\n", n)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Pantry initialized successfully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "write demo pantry and shopping items")
	return cmd
}
