package cli

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"meetnote/internal/notify"
)

func (c *CLI) notificationCommand() *cli.Command {
	return &cli.Command{
		Name:  "notification",
		Usage: "Push notification helpers",
		Commands: []*cli.Command{
			{
				Name:      "open",
				Usage:     "Open the meeting a tapped notification points at",
				ArgsUsage: "<payload-json>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					payload, err := requireArg(cmd, "payload-json")
					if err != nil {
						return err
					}
					a, err := c.application(ctx)
					if err != nil {
						return err
					}

					remove := a.Notify.AddResponseListener(func(r notify.Response) {
						c.out.Info("Opening meeting " + r.MeetingID)
					})
					defer remove()

					if _, err := a.Notify.HandleResponse([]byte(payload)); err != nil {
						return err
					}

					// A tap-launched process routes from the cold-start response.
					last, ok := a.Notify.LastResponse()
					if !ok || last.MeetingID == "" {
						c.out.Info("Notification does not reference a meeting.")
						return nil
					}

					m, err := a.Meetings.Get(ctx, last.MeetingID)
					if err != nil {
						return err
					}
					c.out.MeetingDetail(m)
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "Print this device's push token",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					a, err := c.application(ctx)
					if err != nil {
						return err
					}
					c.initNotifications(ctx, a)

					token, err := a.Notify.PushToken(ctx)
					if err != nil {
						return err
					}
					if token == "" {
						return errors.New("no push token: notifications are not allowed or no push project ID is configured")
					}
					c.out.Info(token)
					return nil
				},
			},
		},
	}
}
