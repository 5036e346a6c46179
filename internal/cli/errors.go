package cli

import (
	"errors"

	"meetnote/internal/audio"
	"meetnote/internal/service"
)

// ErrReported means the command already printed its failure; exit non-zero without
// printing again.
var ErrReported = errors.New("error already reported")

// UserMessage is the text shown for err.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "Meeting not found"
	case errors.Is(err, service.ErrNotConfigured):
		return service.ErrNotConfigured.Error()
	case errors.Is(err, audio.ErrPermissionDenied):
		return audio.ErrPermissionDenied.Error()
	case errors.Is(err, audio.ErrNoRecording):
		return "No recording was produced; nothing was uploaded."
	default:
		return err.Error()
	}
}
