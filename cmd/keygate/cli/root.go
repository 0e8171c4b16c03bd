package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygate",
		Short: "API key management and validation service",
		Long: `Keygate issues, validates, and revokes API keys backed by PostgreSQL.

Keys are bcrypt-hashed at rest and located by an indexed lookup prefix, so
validation stays constant-cost as the key table grows. The serve command runs
the HTTP API; the key commands manage keys directly against the database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cobra.OnInitialize(initEnv)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initEnv() {
	// .env is optional, the environment wins when both are present
	godotenv.Load()
}
