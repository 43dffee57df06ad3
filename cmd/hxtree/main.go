// Hxtree serves a demo component tree and inspects its structure.
//
// Usage:
//
//	hxtree serve [flags]
//	hxtree tree
//	hxtree version
//
// See 'hxtree <command> --help' for the available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hxtree",
	Short: "Server-side component tree UI",
	Long: `hxtree keeps the whole user interface of a session on the server as a tree
of components and serves it to a thin client renderer over HTTP and WebSocket.

This binary runs a small demo application and prints its component tree.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hxtree version %s\n", version)
	},
}
