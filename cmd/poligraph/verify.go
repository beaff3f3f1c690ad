package main

import (
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify-affair ID",
	Short: "Mark an affair as verified so reconciliation ignores it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")

		ctx := cmd.Context()
		application, _, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.VerifyAffair(ctx, args[0], by); err != nil {
			return err
		}
		console.Success("affair %s verified", args[0])
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("by", "", "Reviewer name recorded with the verification")
	rootCmd.AddCommand(verifyCmd)
}
