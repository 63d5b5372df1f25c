package main

import (
	"os"

	"github.com/templui/pawcare/cmd/do/cmd"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "do",
		Short:         "Operator tools for pawcare",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.UsersCmd())
	rootCmd.AddCommand(cmd.TokenCmd())
	rootCmd.AddCommand(cmd.CouponsCmd())
	rootCmd.AddCommand(cmd.RefundsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
