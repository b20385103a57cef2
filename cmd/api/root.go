package main

import (
	"github.com/spf13/cobra"

	"github.com/njprem/tours-auth-api/internal/config"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tours-auth",
		Short: "Credential and session service for the tours API",
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadDotEnv()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}
