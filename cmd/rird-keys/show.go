package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/pkg/identity"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "print the agent id (public key) of a keypair file",
	Example: `  rird-keys show --path ./node.key`,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&keyPath, "path", "p", "", "path to the keypair file (required)")
	showCmd.MarkFlagRequired("path")
}

func runShow(cmd *cobra.Command, _ []string) error {
	kp, err := identity.Load(keyPath)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}
	fmt.Println(kp.PublicHex())
	return nil
}
