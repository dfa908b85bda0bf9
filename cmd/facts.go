package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rdsops/snapshot-reconciler/internal/app"
)

var factsSourceInstance string

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "List the manual snapshots of a DB instance without changing anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.BuildApplicationFromViper(cmd.Context(), viper.GetViper())
		if err != nil {
			printError(err)
			return err
		}

		if err := application.RunFacts(cmd.Context(), factsSourceInstance); err != nil {
			printError(err)
			return err
		}
		return nil
	},
}

func init() {
	factsCmd.Flags().StringVar(&factsSourceInstance, "source-instance", "", "DB instance identifier to inspect")
	rootCmd.AddCommand(factsCmd)
}
