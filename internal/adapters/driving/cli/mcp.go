package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServePort int

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server so assistants can run passes,
check progress and read pass history.

By default the server speaks JSON-RPC over stdio. Use --port to serve
streamable HTTP instead.

Examples:
  zrbridge mcp serve
  zrbridge mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpServePort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	orch, err := requireSync()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Sync: orch, History: historyStore})
	if err != nil {
		return err
	}

	if mcpServePort > 0 {
		addr := fmt.Sprintf(":%d", mcpServePort)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}
