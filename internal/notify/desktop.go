package notify

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

func init() {
	beeep.AppName = "meetnote"
}

// SystemDesktop shows notifications through the platform notifier (D-Bus, Notification
// Center or toast).
type SystemDesktop struct {
	notify func(title, message string, icon any) error
}

// NewSystemDesktop returns a desktop notifier for the running OS.
func NewSystemDesktop() *SystemDesktop {
	return &SystemDesktop{notify: beeep.Notify}
}

// Show implements Desktop. The platform call is not cancellable once started.
func (d *SystemDesktop) Show(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.notify(title, body, ""); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
