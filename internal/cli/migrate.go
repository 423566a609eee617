package cli

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/studyplan-api/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the study plan tables",
	Long: `Apply the embedded schema. Every statement is idempotent so the command
can run on every deploy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}
		printSuccess(cmd, "schema applied")
		return nil
	},
}
