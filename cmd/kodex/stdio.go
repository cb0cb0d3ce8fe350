package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kodexhq/kodex/infrastructure/toolserver"
)

func stdioCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Start the stdio retrieval server",
		Long: `Start the line-delimited stdio tool-call server: one JSON
{id?, tool, params} request per line in, one framed response per line out.
Logs go to the index dir's log file, never stdout, since stdout is the
wire protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(flags)
		},
	}
}

func runStdio(flags *globalFlags) error {
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
	slogger.Info("starting kodex stdio server", slog.String("version", version), slog.String("data_dir", cfg.DataDir()))
	slogger.LogAttrs(context.Background(), slog.LevelDebug, "active configuration", cfg.LogAttrs()...)

	if err := toolserver.ServeStdio(context.Background(), client.Tools, os.Stdin, os.Stdout, slogger); err != nil {
		return runtimeErrorf("stdio server error: %v", err)
	}
	return nil
}
