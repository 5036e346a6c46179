package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"meetnote/internal/app"
	"meetnote/internal/audio"
	"meetnote/internal/logging"
	"meetnote/internal/tui"
)

func (c *CLI) recordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record a meeting, then upload it for transcription",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}
			c.initNotifications(ctx, a)

			if err := audio.RequireMicrophone(ctx, a.Notify); err != nil {
				return err
			}
			rec := c.NewRecorder(c.Config.Recorder)
			if err := rec.CheckFFmpeg(); err != nil {
				return err
			}

			path, err := c.RunRecorder(ctx, rec)
			if errors.Is(err, tui.ErrCancelled) {
				if path != "" {
					_ = os.Remove(path)
				}
				c.out.Info("Recording discarded.")
				return nil
			}
			if err != nil {
				return err
			}
			if path == "" {
				return audio.ErrNoRecording
			}

			c.out.Info("Uploading " + path + " ...")
			return c.upload(ctx, a, path)
		},
	}
}

// upload runs the upload flow for a local file and shows the new meeting.
func (c *CLI) upload(ctx context.Context, a *app.App, path string) error {
	res, err := a.Meetings.UploadAndProcess(ctx, path)
	if err != nil {
		return err
	}
	c.out.Uploaded(res.MeetingID, res.Warning())

	m, err := a.Meetings.Get(ctx, res.MeetingID)
	if err != nil {
		c.log.DebugContext(ctx, "meeting_reload_failed", slog.String("meeting_id", res.MeetingID), logging.Err(err))
		return nil
	}
	c.out.MeetingDetail(m)
	return nil
}
