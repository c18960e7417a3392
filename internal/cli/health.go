package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rescale/appendix-client/internal/api"
)

// newHealthCmd creates the 'health' command.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the generator is reachable",
		Long: `Probe GET <server>/health with the configured proxy settings.

Exits non-zero when the server cannot be reached or answers with an error status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := promptProxyPassword(cfg); err != nil {
				return err
			}

			client, err := api.NewClient(cfg, api.Options{Logger: log})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server: %s\n", cfg.ServerURL)

			status, err := client.Health(GetContext())
			if err != nil {
				log.Error().Err(err).Msg("Health check failed")
				fmt.Fprintln(out, "✗ Server UNREACHABLE")
				return err
			}

			fmt.Fprintf(out, "✓ Server %s", status.Status)
			if status.Version != "" {
				fmt.Fprintf(out, " (version %s)", status.Version)
			}
			fmt.Fprintf(out, " in %s\n", status.Latency.Round(time.Millisecond))
			return nil
		},
	}
}
