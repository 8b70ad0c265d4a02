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

	"github.com/spf13/cobra"
)

var socketPath string
var authTokenEnv string

var rootCmd = &cobra.Command{
	Use:   "rird-ctl",
	Short: "control client for a running rird node",
	Long: `rird-ctl drives a running rird-node over its local JSON-RPC
control plane: checking status, browsing and acting on the task
marketplace, and requesting a graceful shutdown.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/tmp/rird.sock", "path to the node's control-plane socket")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for nodes with rpc auth enabled")
	rootCmd.PersistentFlags().StringVar(&authTokenEnv, "token-env", "", "environment variable holding the bearer token")
	rootCmd.PersistentPreRunE = resolveAuthToken
}

// resolveAuthToken lets --token-env name an environment variable to read
// the bearer token from, so it never has to appear in shell history or
// process listings. An explicit --token takes precedence.
func resolveAuthToken(cmd *cobra.Command, _ []string) error {
	if authToken != "" || authTokenEnv == "" {
		return nil
	}
	v, ok := os.LookupEnv(authTokenEnv)
	if !ok {
		return fmt.Errorf("--token-env %q is not set", authTokenEnv)
	}
	authToken = v
	return nil
}
