package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sipeed/picotune/pkg/app"
	"github.com/sipeed/picotune/pkg/commands"
	"github.com/sipeed/picotune/pkg/config"
	"github.com/sipeed/picotune/pkg/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "picotune",
		Short:        "Discord music bot with live now-playing status and canteen menus",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "YAML config file (env PICOTUNE_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Connect to Discord and serve commands",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the configuration and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d canteens, dashboard %q\n", len(cfg.Mensa.Canteens), cfg.Dashboard.Addr)
				return nil
			},
		},
		&cobra.Command{
			Use:   "commands",
			Short: "Print the slash command definitions as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				router := commands.NewRouter(nil)
				router.Register(commands.All(&commands.Deps{})...)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(router.Definitions())
			},
		},
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv(config.EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return "picotune.yaml"
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.New(cfg)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}
