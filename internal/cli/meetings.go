package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"meetnote/internal/export"
	"meetnote/internal/model"
)

func (c *CLI) uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload an existing recording for transcription",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := requireArg(cmd, "file")
			if err != nil {
				return err
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			return c.upload(ctx, a, path)
		},
	}
}

func (c *CLI) listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List meetings, newest first",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "csv", Usage: "Write the list as CSV"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}

			asCSV := cmd.Bool("csv")
			for {
				if !asCSV {
					c.out.Info("Loading meetings...")
				}
				items, err := a.Meetings.List(ctx)
				if err == nil {
					if asCSV {
						return export.CSV(c.Out, items)
					}
					c.out.MeetingList(items)
					return nil
				}

				c.out.Error(UserMessage(err))
				retry, perr := c.prompter.Confirm(ctx, "Retry?")
				if perr != nil || !retry {
					return ErrReported
				}
			}
		},
	}
}

func (c *CLI) showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a meeting's status, transcript and summary",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Keep polling until processing finishes"},
			&cli.DurationFlag{Name: "interval", Value: 5 * time.Second, Usage: "Polling interval for --wait"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}

			m, err := a.Meetings.Get(ctx, id)
			if err != nil {
				return err
			}
			c.out.MeetingDetail(m)
			if !cmd.Bool("wait") || m.Status.Terminal() {
				return nil
			}
			return c.waitForMeeting(ctx, id, m.Status, cmd.Duration("interval"))
		},
	}
}

// waitForMeeting polls until the meeting reaches a terminal status, printing every change.
func (c *CLI) waitForMeeting(ctx context.Context, id string, last model.Status, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		m, err := c.app.Meetings.Get(ctx, id)
		if err != nil {
			return err
		}
		if m.Status == last {
			continue
		}
		last = m.Status
		c.out.MeetingDetail(m)
		if m.Status.Terminal() {
			return nil
		}
	}
}

func (c *CLI) exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a meeting's transcript and summary to a PDF",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pdf", Aliases: []string{"o"}, Usage: "Output `FILE`", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			m, err := a.Meetings.Get(ctx, id)
			if err != nil {
				return err
			}

			path := cmd.String("pdf")
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := export.PDF(f, m, c.Loc); err != nil {
				f.Close()
				return fmt.Errorf("write pdf: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			c.out.Success("Exported to " + path)
			return nil
		},
	}
}

func (c *CLI) retriggerCommand() *cli.Command {
	return &cli.Command{
		Name:      "retrigger",
		Usage:     "Ask the backend to process a meeting again",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireArg(cmd, "id")
			if err != nil {
				return err
			}
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			if err := a.Meetings.Retrigger(ctx, id); err != nil {
				return err
			}
			c.out.Success("Processing requested for " + id)
			return nil
		},
	}
}
