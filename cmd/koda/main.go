package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"koda/internal/app"
	"koda/internal/config"
)

var (
	version  = "0.1.0"
	cfgFile  string
	model    string
	provider string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "koda",
		Short: "AI coding assistant for your workspace",
		Long: `Koda indexes your project, retrieves the pieces relevant to each
request, and asks a language model to answer or act. The model can
read and edit files, run commands, and fetch web pages through a
small tool set.`,
		RunE: runChat,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/koda/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "override the configured model")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "override the configured provider (ollama, openai, anthropic)")

	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("koda version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if model != "" {
		cfg.Provider.Model = model
	}
	if provider != "" {
		cfg.Provider.Name = provider
	}
	cfg.Version = version
	return cfg, nil
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the workspace index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			application, err := app.New(cfg, workDir)
			if err != nil {
				return err
			}
			defer application.Close()

			stats, err := application.Index(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d files (%d chunks, %d skipped)\n",
				stats.FilesIndexed, stats.ChunksStored, stats.FilesSkipped)
			return nil
		},
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask a single question about the workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			application, err := app.New(cfg, workDir)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Ask(cmd.Context(), joinArgs(args))
		},
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	application, err := app.New(cfg, workDir)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.RunInteractive(cmd.Context())
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
