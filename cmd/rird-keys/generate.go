package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/pkg/identity"
)

var (
	keyPath       string
	force         bool
	passphraseEnv string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "generate a new Ed25519 identity keypair",
	Long: `Generate a new Ed25519 identity keypair and write it to --path in
the strict-permission (mode 0600) document format a node loads at
startup.

With --passphrase-env, the private key is sealed at rest under the
passphrase read from that environment variable instead of written in
the clear.

Refuses to overwrite an existing file unless --force is given.`,
	Example: `  # Generate a fresh node identity
  rird-keys generate --path ./node.key

  # Generate a passphrase-sealed identity
  RIRD_KEY_PASSPHRASE=hunter2 rird-keys generate --path ./node.key --passphrase-env RIRD_KEY_PASSPHRASE`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&keyPath, "path", "p", "", "output path for the keypair file (required)")
	generateCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair file")
	generateCmd.Flags().StringVar(&passphraseEnv, "passphrase-env", "", "environment variable holding a passphrase to seal the private key under")
	generateCmd.MarkFlagRequired("path")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if !force {
		if _, err := os.Stat(keyPath); err == nil {
			return fmt.Errorf("%s already exists, pass --force to overwrite", keyPath)
		}
	}

	kp, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	if passphraseEnv != "" {
		passphrase, ok := os.LookupEnv(passphraseEnv)
		if !ok {
			return fmt.Errorf("environment variable %s is not set", passphraseEnv)
		}
		if err := identity.SaveEncrypted(keyPath, kp, passphrase); err != nil {
			return fmt.Errorf("save encrypted keypair: %w", err)
		}
	} else if err := identity.Save(keyPath, kp); err != nil {
		return fmt.Errorf("save keypair: %w", err)
	}

	fmt.Printf("identity written to %s\n", keyPath)
	fmt.Printf("  agent: %s\n", kp.PublicHex())
	return nil
}
