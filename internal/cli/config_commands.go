// Package cli provides configuration management commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/appendix-client/internal/config"
	"github.com/rescale/appendix-client/internal/sink"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage appendix-client configuration",
		Long: `Configuration management commands for appendix-client.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for appendix-client.

The configuration will be saved to ~/.config/appendix-client/config.ini
(or the path given with --config). Press Enter to keep the shown default.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := runConfigInit(cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			fmt.Fprintln(out, "Check the server with: appendix-client health")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// runConfigInit asks for every setting and returns a validated config.
func runConfigInit(in io.Reader, out io.Writer) (*config.Config, error) {
	p := newPrompter(in, out)
	cfg := config.NewConfig()

	fmt.Fprintln(out, "Appendix Client Configuration Setup")
	fmt.Fprintln(out, "===================================")
	fmt.Fprintln(out)

	cfg.ServerURL = p.ask("Generator URL", cfg.ServerURL)
	cfg.Output.Destination = p.ask("Output destination (directory, s3://, azblob://)", sink.DefaultDownloadDir())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Document Defaults (press Enter for defaults)")
	fmt.Fprintln(out, "--------------------------------------------")
	cfg.Document.ImageWidth = p.float("Image width in cm", cfg.Document.ImageWidth, config.ValidateImageWidth)
	cfg.Document.PaperSize = p.choose("Paper size", cfg.Document.PaperSize, config.PaperSizes)
	cfg.Document.OutputFormat = p.choose("Output format", cfg.Document.OutputFormat, config.OutputFormats)
	cfg.Document.CaptionPosition = p.choose("Caption position", cfg.Document.CaptionPosition, config.CaptionPositions)

	if strings.HasPrefix(cfg.Output.Destination, sink.SchemeS3+"://") {
		cfg.Output.S3Region = p.ask("S3 region", "")
		cfg.Output.S3Endpoint = p.ask("S3 endpoint (blank for AWS)", "")
	}

	fmt.Fprintln(out)
	if p.confirm("Configure proxy?") {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Proxy Configuration")
		fmt.Fprintln(out, "-------------------")
		cfg.ProxyMode = p.choose("Proxy mode", "system", config.ProxyModes)
		if cfg.ProxyMode != "no-proxy" {
			cfg.ProxyHost = p.ask("Proxy host", "")
			if port, err := strconv.Atoi(p.ask("Proxy port", strconv.Itoa(cfg.ProxyPort))); err == nil && port > 0 {
				cfg.ProxyPort = port
			}
			if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
				cfg.ProxyUser = p.ask("Proxy user (password is asked at run time)", "")
			}
			cfg.NoProxy = p.ask("Hosts that bypass the proxy (comma-separated)", "")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/appendix-client/config.ini)
  2. .env in the working directory
  3. Environment variables (APPENDIX_*)
  4. Command-line flags (--server)

Priority: flags > environment > .env > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg, configPath())
			return nil
		},
	}

	return cmd
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Server:")
	fmt.Fprintf(out, "  URL:    %s\n", cfg.ServerURL)
	fmt.Fprintf(out, "  Upload: %s\n", cfg.UploadURL())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Document Defaults:")
	fmt.Fprintf(out, "  Image Width:      %g cm\n", cfg.Document.ImageWidth)
	fmt.Fprintf(out, "  Paper Size:       %s\n", cfg.Document.PaperSize)
	fmt.Fprintf(out, "  Output Format:    %s\n", cfg.Document.OutputFormat)
	fmt.Fprintf(out, "  Caption Position: %s\n", cfg.Document.CaptionPosition)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Output:")
	dest := cfg.Output.Destination
	if dest == "" {
		dest = sink.DefaultDownloadDir() + " (default)"
	}
	fmt.Fprintf(out, "  Destination: %s\n", dest)
	if cfg.Output.S3Region != "" {
		fmt.Fprintf(out, "  S3 Region:   %s\n", cfg.Output.S3Region)
	}
	if cfg.Output.S3Endpoint != "" {
		fmt.Fprintf(out, "  S3 Endpoint: %s\n", cfg.Output.S3Endpoint)
	}
	if cfg.Output.AzureSAS != "" {
		// Never display any portion of the SAS token
		fmt.Fprintf(out, "  Azure SAS:   <set (%d chars)>\n", len(cfg.Output.AzureSAS))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Proxy Settings:")
	fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(out, "  Proxy User: %s\n", cfg.ProxyUser)
	}
	if cfg.NoProxy != "" {
		fmt.Fprintf(out, "  No Proxy:   %s\n", cfg.NoProxy)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "  (file does not exist - using defaults)")
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration and preferences files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}

			fmt.Fprintf(out, "  %s\n", path)
			fmt.Fprintln(out)

			if fileInfo, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", fileInfo.Size())
				fmt.Fprintf(out, "Modified: %s\n", fileInfo.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: appendix-client config init")
			}

			prefs := prefsFile
			if prefs == "" {
				prefs = config.DefaultPreferencesPath()
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Preferences: %s\n", filepath.Clean(prefs))

			return nil
		},
	}

	return cmd
}
