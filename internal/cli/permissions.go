package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"meetnote/internal/devicestate"
)

func (c *CLI) permissionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "permissions",
		Usage: "Show the stored microphone and notification decisions",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			for _, capability := range []devicestate.Capability{devicestate.Microphone, devicestate.Notifications} {
				p, err := a.State.Permission(ctx, capability)
				if err != nil {
					return err
				}
				c.out.Info(fmt.Sprintf("%-14s %s", capability, p))
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "reset",
				Usage: "Forget all decisions so the next run asks again",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					a, err := c.application(ctx)
					if err != nil {
						return err
					}
					if err := a.State.ResetPermissions(ctx); err != nil {
						return err
					}
					c.out.Success("Permissions reset.")
					return nil
				},
			},
		},
	}
}
