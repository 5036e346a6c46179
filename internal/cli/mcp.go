package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"meetnote/internal/mcpserver"
)

func (c *CLI) mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve meetings to MCP clients over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			return mcpserver.Serve(a.Meetings)
		},
	}
}
