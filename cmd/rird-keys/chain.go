package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/pkg/identity"
)

var chainAttestAgentHex string

var chainIdentityCmd = &cobra.Command{
	Use:   "chain-identity",
	Short: "generate a secp256k1 chain identity and attest an agent id with it",
	Long: `Generate a fresh secp256k1 keypair for an agent that already holds a
chain wallet, and attest the node's Ed25519 agent id with it. The
attestation is meant to travel as auxiliary data on a reputation or
governance record, never as a record's primary signature.`,
	Example: `  rird-keys chain-identity --attest <agent-hex>`,
	RunE:    runChainIdentity,
}

func init() {
	rootCmd.AddCommand(chainIdentityCmd)
	chainIdentityCmd.Flags().StringVar(&chainAttestAgentHex, "attest", "", "agent id (hex Ed25519 pubkey) to attest")
	chainIdentityCmd.MarkFlagRequired("attest")
}

func runChainIdentity(cmd *cobra.Command, _ []string) error {
	chain, err := identity.GenerateChainIdentity()
	if err != nil {
		return fmt.Errorf("generate chain identity: %w", err)
	}

	sig, err := chain.AttestAgent(chainAttestAgentHex)
	if err != nil {
		return fmt.Errorf("attest agent: %w", err)
	}

	fmt.Printf("chain_pubkey: %s\n", chain.PublicKeyHex())
	fmt.Printf("agent:        %s\n", chainAttestAgentHex)
	fmt.Printf("attestation:  %x\n", sig)
	return nil
}
