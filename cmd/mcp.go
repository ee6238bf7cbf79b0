package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/meshtrust/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing trust and verification tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(context.Background())
		if err != nil {
			return err
		}
		defer eng.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "meshtrust MCP server started on stdio (db=%s, contacts=%d)\n",
			eng.db.Path(), eng.trust.Stats().TotalContacts)

		srv := mcpserver.NewServer(eng.trust, eng.verifications, eng.scorer)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
