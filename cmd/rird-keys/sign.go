package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/pkg/identity"
)

var (
	signMessage     string
	signMessageFile string
	signHex         bool
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "sign a message with a keypair file",
	Long: `Sign a message using an identity keypair file.

The message is read from --message, --message-file, or stdin (in that
order of priority), the same way a node signs an activity record's id
before gossiping it.`,
	Example: `  echo -n "hello" | rird-keys sign --path ./node.key`,
	RunE:    runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVarP(&keyPath, "path", "p", "", "path to the keypair file (required)")
	signCmd.Flags().StringVarP(&signMessage, "message", "m", "", "message to sign")
	signCmd.Flags().StringVar(&signMessageFile, "message-file", "", "file containing the message to sign")
	signCmd.Flags().BoolVar(&signHex, "hex", false, "print the signature as hex instead of base64")
	signCmd.MarkFlagRequired("path")
}

func runSign(cmd *cobra.Command, _ []string) error {
	kp, err := identity.Load(keyPath)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}

	message, err := readMessage(signMessage, signMessageFile)
	if err != nil {
		return err
	}

	sig, err := kp.Sign(message)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	if signHex {
		fmt.Println(hex.EncodeToString(sig))
	} else {
		fmt.Println(base64.StdEncoding.EncodeToString(sig))
	}
	return nil
}

func readMessage(message, messageFile string) ([]byte, error) {
	if message != "" {
		return []byte(message), nil
	}
	if messageFile != "" {
		data, err := os.ReadFile(messageFile)
		if err != nil {
			return nil, fmt.Errorf("read message file: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no message provided")
	}
	return data, nil
}
