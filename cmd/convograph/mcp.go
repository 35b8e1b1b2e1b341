package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rendis/convograph/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the layout tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcp.NewConvographServer(mcp.ConvographServerDeps{
			Service:   a.service,
			Validator: a.validator,
			Hub:       a.hub,
			Logger:    a.logger,
		})
		a.logger.Info("mcp server ready", "transport", "stdio")
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
