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

var rootCmd = &cobra.Command{
	Use:   "rird-node",
	Short: "rird node daemon - activity record protocol engine",
	Long: `rird-node runs one node of the rird activity record protocol: it
signs and validates records, projects task and escrow state, enforces the
safety filter and governance rules, and serves a local JSON-RPC control
plane for the marketplace.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a YAML or JSON config file")
	rootCmd.PersistentFlags().String("env", "", "environment name (selects config/<env>.yaml)")
}
