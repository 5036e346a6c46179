package cli

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"meetnote/internal/audio"
)

func (c *CLI) doctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check ffmpeg, configuration and backend reachability",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := c.application(ctx)
			if err != nil {
				return err
			}

			failed := false
			check := func(name string, err error, ok string) {
				if err != nil {
					failed = true
					c.out.Check(name, false, UserMessage(err))
					return
				}
				c.out.Check(name, true, ok)
			}

			check("ffmpeg", c.NewRecorder(c.Config.Recorder).CheckFFmpeg(), c.Config.Recorder.FFmpegPath)
			if ignored := audio.DefaultSessionMode().Unsupported(); len(ignored) > 0 {
				c.out.Check("audio session", true, "ignored on this host: "+strings.Join(ignored, ", "))
			}
			check("supabase", a.Health().PingContext(ctx), c.Config.Supabase.URL)
			check("backend", a.Backend.Health(ctx), c.Config.Backend.URL)

			if c.Config.Push.ProjectID == "" {
				c.out.Check("push", false, "no push project ID; notifications stay local")
			} else {
				c.out.Check("push", true, c.Config.Push.ProjectID)
			}

			if failed {
				return ErrReported
			}
			return nil
		},
	}
}
