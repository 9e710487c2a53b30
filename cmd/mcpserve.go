package cmd

import (
	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/mcpserver"
)

var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Serve search/list/show as MCP tools over stdio",
	Long: `mcp-serve starts an MCP server on stdin/stdout exposing search,
list, and show as tools, for agentic callers that speak MCP instead of
the --robot flat-JSON CLI contract.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, st, idx, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		defer idx.Close()
		defer engine.Close()

		srv := mcpserver.NewServer(st, engine)
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpServeCmd)
}
