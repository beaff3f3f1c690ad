package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		application, _, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Migrate(ctx); err != nil {
			return err
		}
		console.Success("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
