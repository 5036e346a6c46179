// Package cli is the meetnote command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"meetnote/internal/app"
	"meetnote/internal/audio"
	"meetnote/internal/config"
	"meetnote/internal/logging"
	"meetnote/internal/notify"
	"meetnote/internal/output"
	"meetnote/internal/tui"
	"meetnote/internal/version"
)

// Recorder is the capture backend used by record and doctor.
type Recorder interface {
	tui.Recorder
	CheckFFmpeg() error
}

// CLI holds the I/O and collaborators of one invocation. Zero-valued hooks get the real
// implementations.
type CLI struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	Loc *time.Location

	// Config is loaded from the environment when nil.
	Config *config.AppConfig

	NewRecorder func(cfg config.RecorderConfig) Recorder
	RunRecorder func(ctx context.Context, rec tui.Recorder) (string, error)
	Desktop     notify.Desktop

	out      *output.Formatter
	prompter *linePrompter
	log      *slog.Logger
	app      *app.App
}

func (c *CLI) setDefaults() {
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Err == nil {
		c.Err = os.Stderr
	}
	if c.Loc == nil {
		c.Loc = time.Local
	}
	if c.NewRecorder == nil {
		c.NewRecorder = func(cfg config.RecorderConfig) Recorder {
			return audio.NewRecorder(cfg, audio.DefaultSessionMode(), audio.HighQualityPreset)
		}
	}
	if c.RunRecorder == nil {
		c.RunRecorder = func(ctx context.Context, rec tui.Recorder) (string, error) {
			return tui.Run(ctx, rec)
		}
	}
	if c.Desktop == nil {
		c.Desktop = notify.NewSystemDesktop()
	}
	c.out = output.NewFormatter(c.Out, c.Loc)
	c.prompter = newLinePrompter(c.In, c.Out)
}

// Command builds the root command.
func (c *CLI) Command() *cli.Command {
	c.setDefaults()

	return &cli.Command{
		Name:      "meetnote",
		Usage:     "Record meetings and read their transcripts and summaries",
		Version:   version.Full(),
		Writer:    c.Out,
		ErrWriter: c.Err,
		Flags:     c.flags(),
		Before:    c.before,
		After: func(context.Context, *cli.Command) error {
			return c.close()
		},
		Commands: []*cli.Command{
			c.recordCommand(),
			c.uploadCommand(),
			c.listCommand(),
			c.showCommand(),
			c.exportCommand(),
			c.retriggerCommand(),
			c.watchCommand(),
			c.notificationCommand(),
			c.permissionsCommand(),
			c.doctorCommand(),
			c.mcpCommand(),
		},
	}
}

func (c *CLI) flags() []cli.Flag {
	var configFile string

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Load configuration from `FILE`",
			Validator:   validateConfig,
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:    "supabase-url",
			Usage:   "Supabase project URL (SUPABASE_URL)",
			Sources: cli.NewValueSourceChain(yaml.YAML("supabase.url", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "supabase-anon-key",
			Usage:   "Supabase anon key (SUPABASE_ANON_KEY)",
			Sources: cli.NewValueSourceChain(yaml.YAML("supabase.anon_key", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "storage-bucket",
			Usage:   "Storage bucket for recordings (STORAGE_BUCKET)",
			Sources: cli.NewValueSourceChain(yaml.YAML("storage.bucket", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "backend-url",
			Usage:   "Processing backend base URL (BACKEND_URL)",
			Sources: cli.NewValueSourceChain(yaml.YAML("backend.url", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "push-project-id",
			Usage:   "Push notification project ID (PUSH_PROJECT_ID)",
			Sources: cli.NewValueSourceChain(yaml.YAML("push.project_id", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "state-dir",
			Usage:   "Directory for device state and recordings (STATE_DIR)",
			Sources: cli.NewValueSourceChain(yaml.YAML("state.dir", altsrc.NewStringPtrSourcer(&configFile))),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error (LOG_LEVEL)",
			Sources: cli.NewValueSourceChain(yaml.YAML("log.level", altsrc.NewStringPtrSourcer(&configFile))),
		},
	}
}

// before merges flag and config-file values over the environment configuration.
func (c *CLI) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if c.Config == nil {
		c.Config = config.Load()
		// The CLI is quiet unless asked otherwise.
		if _, ok := os.LookupEnv("LOG_LEVEL"); !ok {
			c.Config.LogLevel = "warn"
		}
	}
	cfg := c.Config

	override := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	override("supabase-url", &cfg.Supabase.URL)
	override("supabase-anon-key", &cfg.Supabase.AnonKey)
	override("storage-bucket", &cfg.Storage.Bucket)
	override("backend-url", &cfg.Backend.URL)
	override("push-project-id", &cfg.Push.ProjectID)
	override("log-level", &cfg.LogLevel)
	if cmd.IsSet("state-dir") {
		cfg.StateDir = cmd.String("state-dir")
		cfg.Recorder.OutputDir = filepath.Join(cfg.StateDir, "recordings")
	}

	c.log = logging.New(c.Err, c.Loc, logging.ParseLevel(cfg.LogLevel))
	return ctx, nil
}

// application builds the wired application on first use.
func (c *CLI) application(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(ctx, c.Config, app.Options{
		Prompter: c.prompter,
		Desktop:  c.Desktop,
		Logger:   c.log,
	})
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *CLI) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// initNotifications runs the startup permission flow; failures only cost notifications.
func (c *CLI) initNotifications(ctx context.Context, a *app.App) {
	if err := a.Notify.Init(ctx); err != nil {
		c.log.WarnContext(ctx, "notification_init_failed", logging.Err(err))
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return v, nil
}

func validateConfig(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q does not exist", path)
		}
		return fmt.Errorf("failed to stat %q: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", path)
	}

	ext := filepath.Ext(info.Name())
	if ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("invalid extension %q", path)
	}

	return nil
}
