// Command kodex is the CLI surface over the kodex retrieval engine: a
// stdio retrieval server, an HTTP retrieval server, a stdio live-data
// console server, and the offline commands extract/migrate/reindex/
// diagnose.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kodexhq/kodex/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags holds the common flags every subcommand accepts.
type globalFlags struct {
	configPath string
	indexDir   string
	logFormat  string
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ee *exitError
		if asExitError(err, &ee) {
			return ee.code
		}
		return exitUsage
	}
	return exitOK
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "kodex",
		Short:         "kodex code-intelligence retrieval engine",
		Long:          `kodex indexes an extracted codebase and serves hybrid keyword/vector/graph retrieval over stdio and HTTP tool-call transports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a .env-style config file, or a .yaml/.yml config overlay (default: .env in the current directory)")
	cmd.PersistentFlags().StringVar(&flags.indexDir, "index-dir", "", "Directory holding the manifest, pipeline guard state, and feedback log")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: json or text (default: text)")

	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(stdioCmd(flags))
	cmd.AddCommand(mcpCmd(flags))
	cmd.AddCommand(consoleCmd(flags))
	cmd.AddCommand(extractCmd(flags))
	cmd.AddCommand(migrateCmd(flags))
	cmd.AddCommand(reindexCmd(flags))
	cmd.AddCommand(diagnoseCmd(flags))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads the layered configuration (defaults, then .env file,
// then environment variables) and applies any common flag overrides.
func loadConfig(flags *globalFlags) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return config.AppConfig{}, configErrorf("load config: %v", err)
	}

	var opts []config.AppConfigOption
	if flags.indexDir != "" {
		opts = append(opts, config.WithDataDir(flags.indexDir))
	}
	if flags.logFormat != "" {
		switch flags.logFormat {
		case "json":
			opts = append(opts, config.WithLogFormat(config.LogFormatJSON))
		case "text":
			opts = append(opts, config.WithLogFormat(config.LogFormatPretty))
		default:
			return config.AppConfig{}, usageErrorf("--log-format must be json or text, got %q", flags.logFormat)
		}
	}
	cfg = cfg.Apply(opts...)

	if err := cfg.EnsureDataDir(); err != nil {
		return config.AppConfig{}, runtimeErrorf("create index dir: %v", err)
	}
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("kodex %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}
