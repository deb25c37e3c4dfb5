// Package commands defines all Cobra CLI commands for the quoteseek binary.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/quoteseek/internal/audit"
	"github.com/54b3r/quoteseek/internal/config"
	"github.com/54b3r/quoteseek/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// envFile holds the --env-file flag value.
var envFile string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quoteseek",
		Short: "quoteseek: verified quote search over a corpus of talks",
		Long: `quoteseek answers natural language questions with quotes drawn from a
corpus of transcribed talks.

Relevant paragraphs are retrieved from a Qdrant collection, a language model
selects the ones that answer the question, and every quote the model proposes
is checked against the retrieved text. Quotes that cannot be matched are
dropped, so nothing returned is invented.

Model provider is selected via the MODEL_PROVIDER environment variable,
a .env file, or a YAML config file (~/.quoteseek/config.yaml).
See 'quoteseek --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// .env first so that it outranks YAML; real env outranks both.
			if err := config.LoadDotEnv(envFile, log); err != nil {
				return err
			}
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// LOG_LEVEL and LOG_FORMAT may have come from a file.
			log = logging.New()
			slog.SetDefault(log)

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.quoteseek/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file; ignored if missing")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}
