package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/debuglog"
	"github.com/pders01/reviewq/internal/launcher"
	"github.com/pders01/reviewq/internal/queue"
	"github.com/pders01/reviewq/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath  string
	backendKind string
	logLevel    string
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:           "reviewq",
	Short:         "Terminal moderation queue for content under review",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("reviewq %s\n", Version)
		fmt.Println("Moderation queue")
		fmt.Println("github.com/pders01/reviewq")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration to ~/.config/reviewq/config.toml",
	Run: func(_ *cobra.Command, _ []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "reviewq", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&backendKind, "backend", "", "Content backend: http or local (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides config)")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Skip startup banner")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(versionCmd, configCmd, serveCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if backendKind != "" {
		cfg.Backend.Kind = backendKind
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	return debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File)
}

func runTUI(_ *cobra.Command, _ []string) error {
	if !quiet {
		tui.ShowBanner(Version)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer debuglog.Close()

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	router, err := queue.NewRouter(cfg.Routes)
	if err != nil {
		return fmt.Errorf("invalid routes: %w", err)
	}

	nav, err := launcher.New(cfg.Editor)
	if err != nil {
		return err
	}

	debuglog.Infof("Starting reviewq %s with %s backend", Version, cfg.Backend.Kind)

	app := tui.NewApp(cfg, tui.Deps{
		Querier:   b,
		Deleter:   b,
		Navigator: nav,
		Router:    router,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
