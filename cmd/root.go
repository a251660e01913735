package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/fale-com-deus/internal"
	"github.com/iksnae/fale-com-deus/internal/gateway"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	configPath   string
	storagePath  string
	backendName  string
	providerName string
	modelName    string
	version      string = "dev"
	commit       string = "unknown"
	date         string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fale-com-deus",
	Short: "Talk with a compassionate spiritual guide in your terminal",
	Long: `Fale com Deus is a terminal chat with an AI spiritual guide.

Choose a path (Budismo, Cristianismo, Estoicismo, ...) and talk. The guide
answers in the voice of that tradition, streaming its reply as it is written.
Conversations are kept locally and archived when you change path.

Quick Start:
  fale-com-deus chat                     # Start or resume a conversation
  fale-com-deus chat --persona buddhism  # Start with a specific path
  fale-com-deus history list             # See archived conversations
  fale-com-deus export --format md       # Export the archive as Markdown

The AI provider key is read from $API_KEY (or gateway.api_key in
~/.fale-com-deus/config.yaml).`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.fale-com-deus/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Storage file (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend: sqlite, bolt or memory (overrides storage.backend)")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "AI provider (overrides gateway.provider)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "AI model (overrides gateway.model)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// app is the wiring shared by the subcommands
type app struct {
	cfg      *internal.Config
	paths    internal.DataPaths
	kv       internal.KVStore
	store    *internal.SessionStore
	restored internal.Restored
	gateway  *gateway.Client
	theme    internal.Theme
	printer  *internal.Printer
}

// loadConfig reads the config file and applies the global flag overrides
func loadConfig() (*internal.Config, internal.DataPaths, error) {
	paths, err := internal.DetectDataPaths()
	if err != nil {
		return nil, paths, fmt.Errorf("failed to detect data directory: %w", err)
	}

	path := configPath
	if path == "" {
		path = paths.ConfigPath
	}
	cfg, err := internal.LoadConfig(path)
	if err != nil {
		return nil, paths, err
	}

	if backendName != "" {
		cfg.Storage.Backend = backendName
	}
	if storagePath != "" {
		cfg.Storage.Path = storagePath
	}
	if providerName != "" && providerName != cfg.Gateway.Provider {
		cfg.Gateway.Provider = providerName
		cfg.Gateway.Model = ""
	}
	if modelName != "" {
		cfg.Gateway.Model = modelName
	}
	if err := cfg.Validate(); err != nil {
		return nil, paths, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := internal.SetLogLevelName(cfg.LogLevel); err != nil {
		return nil, paths, err
	}
	internal.SetVerbose(verbose)
	return cfg, paths, nil
}

// openApp loads the configuration, opens storage and restores the persisted
// state. Callers must Close the result.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, paths, err := loadConfig()
	if err != nil {
		return nil, err
	}

	path := cfg.Storage.Path
	if path == "" {
		path = paths.StoragePath(cfg.Storage.Backend)
	}
	internal.LogDebug("Opening %s storage at %s", cfg.Storage.Backend, path)
	kv, err := internal.OpenKVStore(cfg.Storage.Backend, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store, restored := internal.NewBootstrap(kv).Restore()

	client, err := gateway.NewFromConfig(cfg.Gateway)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	internal.LogInfo("AI gateway: %s", client.Describe())

	theme := internal.ResolveTheme(cfg.Theme, restored.Theme, lipgloss.HasDarkBackground())

	return &app{
		cfg:      cfg,
		paths:    paths,
		kv:       kv,
		store:    store,
		restored: restored,
		gateway:  client,
		theme:    theme,
		printer:  internal.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), theme),
	}, nil
}

func (a *app) newController(opts ...internal.ControllerOption) *internal.Controller {
	opts = append([]internal.ControllerOption{internal.WithTurnTimeout(a.cfg.Gateway.Timeout)}, opts...)
	return internal.NewController(a.store, a.gateway, opts...)
}

// setTheme stores id and restyles the output
func (a *app) setTheme(id internal.ThemeID) error {
	if err := a.store.SetTheme(id); err != nil {
		return err
	}
	a.theme, _ = internal.LookupTheme(id)
	a.printer = internal.NewPrinter(a.printer.Out, a.printer.Err, a.theme)
	return nil
}

func (a *app) Close() error {
	return a.kv.Close()
}
