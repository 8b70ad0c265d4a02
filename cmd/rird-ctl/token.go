// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/internal/rpc"
)

var (
	tokenSecretEnv string
	tokenSubject   string
	tokenTTL       time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "mint a bearer token for a node's --token-env secret",
	Long: `token mints a short-lived bearer token against the same shared
secret a node reads from its rpc.auth_token_env configuration. It exists
for local development and testing; in production the secret and the
tokens minted against it should be managed outside this CLI.`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSecretEnv, "secret-env", "", "environment variable holding the node's shared auth secret (required)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "rird-ctl", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("secret-env")
}

func runToken(cmd *cobra.Command, _ []string) error {
	secret, ok := os.LookupEnv(tokenSecretEnv)
	if !ok || secret == "" {
		return fmt.Errorf("--secret-env %q is not set", tokenSecretEnv)
	}

	signed, err := rpc.IssueToken(secret, tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}
