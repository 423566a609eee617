package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/noah-isme/studyplan-api/pkg/config"
	"github.com/noah-isme/studyplan-api/pkg/database"
)

var (
	commandTimeout time.Duration

	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
)

var rootCmd = &cobra.Command{
	Use:     "studyplanctl",
	Version: "dev",
	Short:   "Operator tooling for the study plan API",
	Long: `studyplanctl prepares the study plan database.

It applies the schema and loads the course catalog and student accounts
from a YAML seed file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&commandTimeout, "timeout", 30*time.Second, "abort the command after this long")
	rootCmd.AddCommand(migrateCmd, seedCmd)
}

// SetVersion overrides the version reported by --version.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openDatabase connects with the same environment the API server reads.
func openDatabase() (*sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}

func printSuccess(cmd *cobra.Command, msg string) {
	_, _ = successColor.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
}

func printWarning(cmd *cobra.Command, msg string) {
	_, _ = warningColor.Fprintf(cmd.OutOrStdout(), "⚠ %s\n", msg)
}

func printLabelValue(cmd *cobra.Command, label string, value interface{}) {
	_, _ = labelColor.Fprintf(cmd.OutOrStdout(), "  %s: ", label)
	_, _ = valueColor.Fprintln(cmd.OutOrStdout(), value)
}
