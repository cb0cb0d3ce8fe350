package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kodexhq/kodex/infrastructure/mcpbridge"
)

func mcpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP-protocol bridge over stdio",
		Long: `Start a Model Context Protocol server that re-exposes every
tool registered on the kodex tool registry, for agents that only speak MCP
rather than kodex's own line-delimited wire protocol (see the "stdio"
command for that).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(flags)
		},
	}
}

func runMCP(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			client.Logger.Error("failed to close kodex client", slog.Any("error", err))
		}
	}()

	slogger := client.Logger.Slog()
	slogger.Info("starting kodex mcp bridge", slog.String("version", version), slog.String("data_dir", cfg.DataDir()))
	slogger.LogAttrs(context.Background(), slog.LevelDebug, "active configuration", cfg.LogAttrs()...)

	bridge := mcpbridge.NewServer(client.Tools, slogger)
	if err := bridge.ServeStdio(); err != nil {
		return runtimeErrorf("mcp bridge error: %v", err)
	}
	return nil
}
