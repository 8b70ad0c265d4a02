package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/pkg/identity"
)

var (
	verifyAgent     string
	verifyMessage   string
	verifyMsgFile   string
	verifySignature string
	verifySigHex    bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "verify a signature against an agent's public key",
	Example: `  rird-keys verify --agent <hex> --message "hello" --signature <b64sig>`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyAgent, "agent", "", "hex-encoded public key to verify against (required)")
	verifyCmd.Flags().StringVarP(&verifyMessage, "message", "m", "", "message that was signed")
	verifyCmd.Flags().StringVar(&verifyMsgFile, "message-file", "", "file containing the signed message")
	verifyCmd.Flags().StringVarP(&verifySignature, "signature", "s", "", "the signature, base64 or hex (required)")
	verifyCmd.Flags().BoolVar(&verifySigHex, "hex", false, "treat --signature as hex instead of base64")
	verifyCmd.MarkFlagRequired("agent")
	verifyCmd.MarkFlagRequired("signature")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	message, err := readMessage(verifyMessage, verifyMsgFile)
	if err != nil {
		return err
	}

	var sig []byte
	if verifySigHex {
		sig, err = hex.DecodeString(verifySignature)
	} else {
		sig, err = base64.StdEncoding.DecodeString(verifySignature)
	}
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	if !identity.Verify(sig, message, verifyAgent) {
		fmt.Println("signature INVALID")
		return fmt.Errorf("signature verification failed")
	}

	fmt.Println("signature valid")
	return nil
}
