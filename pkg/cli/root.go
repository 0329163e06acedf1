package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"duck-olap/internal/config"
	"duck-olap/internal/domain"
	"duck-olap/internal/source"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if stage := domain.Stage(err); stage != "" {
				errObj["stage"] = stage
			}
			var withSchema *schemaError
			if errors.As(err, &withSchema) {
				errObj["schema_document"] = withSchema.document
			}
			_ = printJSON(stdout, errObj)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// globals holds the persistent flags after precedence has been applied:
// flag > env > profile > default.
type globals struct {
	source   string
	output   string
	profile  string
	logLevel string

	env    *config.Config
	active Profile
	logger *slog.Logger
	dotEnv string
}

// params parses the resolved source string.
func (g *globals) params() (source.ConnectionParams, error) {
	if g.source == "" {
		return source.ConnectionParams{}, domain.ErrValidation("no source: pass --source, set SOURCE_DSN or add one to a profile")
	}
	return source.ParseConnectionString(g.source)
}

// pick applies flag > env > profile precedence to a command-local flag.
func pick(cmd *cobra.Command, flag, value, env, profile string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}
	if env != "" {
		return env
	}
	if profile != "" {
		return profile
	}
	return value
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "duckolap",
		Short:         "Query relational tables as MDX cubes",
		Long:          "duckolap discovers a table's columns, synthesizes a cube schema from them and runs MDX queries against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(g.dotEnv); err != nil {
				return err
			}
			env, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load environment: %w", err)
			}
			g.env = env

			// Config file is optional.
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}
			p, err := cfg.ActiveProfile(g.profile)
			if err != nil && g.profile != "" {
				return err
			}
			g.active = p

			if !cmd.Flags().Changed("source") {
				g.source = firstNonEmpty(env.SourceDSN, p.Source)
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("DUCKOLAP_OUTPUT"); v != "" {
					g.output = v
				} else if p.Output != "" {
					g.output = p.Output
				}
			}
			if !cmd.Flags().Changed("log-level") {
				if v := os.Getenv("LOG_LEVEL"); v != "" {
					g.logLevel = v
				} else if p.LogLevel != "" {
					g.logLevel = p.LogLevel
				}
			}
			if err := validateOutputFormat(g.output); err != nil {
				return err
			}

			g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: config.ParseLevel(g.logLevel),
			}))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.source, "source", "", "Relational source (duckdb:<file>, sqlite:<file>, postgres://..., druid://...)")
	rootCmd.PersistentFlags().StringVarP(&g.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&g.profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.dotEnv, "env-file", ".env", "Environment file to load before reading the environment")

	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newDiscoverCmd(g))
	rootCmd.AddCommand(newSchemaCmd(g))
	rootCmd.AddCommand(newSeedCmd(g))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
