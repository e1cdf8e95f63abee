package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the pead CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pead version %s\n", version)
		fmt.Println("Post-earnings-announcement drift backtester")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
