// Package main provides the anko CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/anko/cli"
	"github.com/richinex/anko/config"
	"github.com/richinex/anko/model"
	"github.com/richinex/anko/server"
)

var (
	// Global flags
	configPath string
	provider   string
	logLevel   string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "anko",
		Short: "Retail research and design assistant",
		Long: `AnkoAI researches trending products on the web, generates design images
and looks up the store's product catalog through a tool-using language model.

Run "anko serve" for the chat UI API or "anko chat" for a terminal session.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./anko.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider ("+strings.Join(config.SupportedProviders(), ", ")+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show steps, tool calls and token usage")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(productsCmd())
	rootCmd.AddCommand(designsCmd())

	return rootCmd
}

// newLogger creates a structured logger that writes to w at the given level
// and format. Format must be "text" or "json"; any other value defaults to
// text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadSettings reads the config file and environment, then applies flags.
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return config.Settings{}, err
	}
	if provider != "" {
		settings.LLM.Provider = provider
		settings.LLM.Model = ""
	}
	if logLevel != "" {
		settings.Log.Level = logLevel
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// openServices builds every service from settings. The caller must Close it.
func openServices() (*cli.Services, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	level, err := config.ParseLogLevel(settings.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := newLogger(os.Stderr, level, settings.Log.Format)
	return cli.NewServices(settings, logger)
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat and design API",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			cfg := server.Config{
				Listen:      svc.Settings.Server.Listen,
				IdleTimeout: time.Duration(svc.Settings.Server.SessionIdleMin) * time.Minute,
			}
			if listen != "" {
				cfg.Listen = listen
			}
			srv := server.New(cfg, svc.NewAgent(), svc.Designs, svc.DB, svc.Logger)
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides ANKO_LISTEN)")

	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			return cli.Chat(cmd.Context(), svc.NewAgent(), os.Stdin, os.Stdout, cli.Options{Verbose: verbose})
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			return cli.Ask(cmd.Context(), svc.NewAgent(), args[0], os.Stdout, cli.Options{Verbose: verbose})
		},
	}
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			cli.ListTools(os.Stdout, svc.Registry, verboseTools)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
	}

	importCmd := &cobra.Command{
		Use:   "import [file.json]",
		Short: "Import a JSON array of product records",
		Long: `Import product records into the catalog. Each record's "_id" is the product
text; "contentVector" is used as its embedding when present, otherwise the
record is embedded with the configured embeddings deployment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			return cli.ImportProducts(cmd.Context(), svc.Products, svc.Embedder, args[0], os.Stdout)
		},
	}

	var topK int
	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog by similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			return cli.SearchProducts(cmd.Context(), svc.Products, svc.Embedder, args[0], topK, os.Stdout)
		},
	}
	searchCmd.Flags().IntVarP(&topK, "top", "k", 4, "Number of products to return")

	cmd.AddCommand(importCmd, searchCmd)
	return cmd
}

func designsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "designs",
		Short: "Review submitted designs",
	}

	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List design submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()
			return cli.ListDesigns(cmd.Context(), svc.Designs, model.DesignStatus(status), os.Stdout)
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, approved, rejected, revise)")

	cmd.AddCommand(listCmd)
	return cmd
}
