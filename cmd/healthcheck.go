package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/fale-com-deus/internal"
	"github.com/iksnae/fale-com-deus/internal/gateway"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration, storage and AI gateway setup",
	Long: `Check the health of fale-com-deus by verifying:
  • Data directory and configuration file
  • Storage backend access and stored records
  • AI provider credential and gateway setup

The gateway is not contacted; only its configuration is checked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 Fale com Deus Health Check"))
		fmt.Fprintln(out)

		// Step 1: configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		cfg, paths, err := loadConfig()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Configuration error:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		if paths.ConfigExists() || configPath != "" {
			fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		} else {
			fmt.Fprintln(out, successStyle.Render("✅ No config file, using defaults"))
		}
		if healthcheckDetails {
			detail(out, "Data directory", paths.BaseDir)
			detail(out, "Config file", paths.ConfigPath)
			detail(out, "Log level", cfg.LogLevel)
		}
		fmt.Fprintln(out)

		// Step 2: storage
		fmt.Fprintln(out, infoStyle.Render("Step 2: Opening storage..."))
		path := cfg.Storage.Path
		if path == "" {
			path = paths.StoragePath(cfg.Storage.Backend)
		}
		kv, err := internal.OpenKVStore(cfg.Storage.Backend, path)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open storage:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer func() { _ = kv.Close() }()

		keys, err := kv.Keys()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to read storage:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %s storage ready (%d record(s))", cfg.Storage.Backend, len(keys))))
		if healthcheckDetails {
			detail(out, "Path", path)
			for _, k := range keys {
				detail(out, "Key", k)
			}
		}

		store, restored := internal.NewBootstrap(kv).Restore()
		if restored.Active != nil {
			p := internal.MustPersona(restored.Active.Persona)
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Active conversation: %s, %d turn(s)", p.Name, len(restored.Active.Turns))))
		} else {
			fmt.Fprintln(out, infoStyle.Render("   No active conversation"))
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Archive: %d conversation(s)", len(restored.Archive))))
		if healthcheckDetails {
			detail(out, "Preferred path", string(store.PreferredPersona()))
			detail(out, "Theme", string(store.Theme()))
		}
		fmt.Fprintln(out)

		// Step 3: gateway
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking AI gateway..."))
		client, err := gateway.NewFromConfig(cfg.Gateway)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Gateway setup failed:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		gatewayOK := client.Configured()
		if gatewayOK {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Gateway: %s", client.Describe())))
		} else {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Gateway: %s", client.Describe())))
			envName := cfg.Gateway.APIKeyEnv
			if envName == "" {
				envName = internal.DefaultAPIKeyEnv
			}
			fmt.Fprintf(out, "   Set $%s or gateway.api_key in %s\n", envName, paths.ConfigPath)
		}
		if healthcheckDetails {
			detail(out, "Provider", cfg.Gateway.Provider)
			detail(out, "Model", cfg.Gateway.Model)
			detail(out, "Credential", cfg.Gateway.CredentialSource())
			detail(out, "Timeout", cfg.Gateway.Timeout.String())
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if gatewayOK {
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Storage works but the guide cannot answer until a key is configured"))
		}
		return nil
	},
}

func detail(w io.Writer, label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(w, "   %s: %s\n", label, value)
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
