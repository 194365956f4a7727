package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/partest/packages/output"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the json output format",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), output.JSONSchema)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
