package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print rird-node's build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
