package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"meetnote/internal/service"
	"meetnote/internal/watch"
)

func (c *CLI) watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Upload every recording dropped into a directory",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "settle", Value: 2 * time.Second, Usage: "Quiet period before a file is uploaded"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := requireArg(cmd, "dir")
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}

			w := watch.New(dir, a.Meetings, cmd.Duration("settle"), func(path string, res *service.UploadResult, err error) {
				if err != nil {
					c.out.Error(path + ": " + UserMessage(err))
					return
				}
				c.out.Uploaded(res.MeetingID, res.Warning())
			}, c.log)

			c.out.Info("Watching " + dir + " (ctrl+c to stop)")
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
