package cmd

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "tripledger",
	Short: "group expense ledger and settlement engine",
	Long:  `tripledger keeps a per-trip ledger of shared expenses and computes who owes whom, so a group can settle up after a trip.`,
}

func init() {
	RootCmd.AddCommand(shareCmd())
	RootCmd.AddCommand(serverCommand())
	RootCmd.AddCommand(migrateCommand())
}
