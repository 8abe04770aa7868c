package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// options holds the resolved persistent flags.
type options struct {
	duckdbPath   string
	registryPath string
	output       outputFormat
	verbose      bool
}

// Execute runs the CLI.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if code := errorCode(err); code != "" {
				errObj["code"] = code
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func errorCode(err error) string {
	var (
		notFound    *domain.NotFoundError
		validation  *domain.ValidationError
		conflict    *domain.ConflictError
		compilation *domain.CompilationError
		resolution  *domain.ResolutionConfigError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &resolution):
		return "resolution_config"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &compilation):
		return "compilation"
	default:
		return ""
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{output: "table"}

	rootCmd := &cobra.Command{
		Use:           "meerkat",
		Short:         "Semantic query compiler for DuckDB",
		Long:          "Compile semantic queries to DuckDB SQL, resolve lookup columns, deduplicate filters and run queries locally.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Apply precedence: flag > env > default
			if !cmd.Flags().Changed("duckdb") {
				if v := os.Getenv("MEERKAT_DUCKDB_PATH"); v != "" {
					opts.duckdbPath = v
				}
			}
			if !cmd.Flags().Changed("registry") {
				if v := os.Getenv("MEERKAT_REGISTRY_PATH"); v != "" {
					opts.registryPath = v
				}
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("MEERKAT_OUTPUT"); v != "" {
					opts.output = outputFormat(v)
				} else if !term.IsTerminal(int(os.Stdout.Fd())) {
					opts.output = "json"
				}
			}
			return validateOutputFormat(string(opts.output))
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.duckdbPath, "duckdb", "", "DuckDB database file (empty for in-memory)")
	rootCmd.PersistentFlags().StringVar(&opts.registryPath, "registry", "", "SQLite schema registry used when inputs carry no tableSchemas")
	rootCmd.PersistentFlags().VarP(&opts.output, "output", "o", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log compilation stages to stderr")

	rootCmd.AddCommand(newCompileCmd(opts))
	rootCmd.AddCommand(newResolveCmd(opts))
	rootCmd.AddCommand(newDedupeCmd(opts))
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newASTCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func (o *options) logger() *slog.Logger {
	if !o.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
