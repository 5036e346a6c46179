package audio

import (
	"context"
	"errors"
	"fmt"

	"meetnote/internal/devicestate"
)

// ErrPermissionDenied is returned when the user has refused microphone access.
var ErrPermissionDenied = errors.New("Microphone access required: enable microphone access in settings to record meetings")

const microphoneQuestion = "Allow meetnote to use the microphone to record meetings?"

// PermissionAsker resolves a capability, prompting only while it is undetermined.
type PermissionAsker interface {
	RequestPermission(ctx context.Context, c devicestate.Capability, question string) (devicestate.Permission, error)
}

// RequireMicrophone gates recording on microphone permission.
func RequireMicrophone(ctx context.Context, asker PermissionAsker) error {
	p, err := asker.RequestPermission(ctx, devicestate.Microphone, microphoneQuestion)
	if err != nil {
		return fmt.Errorf("microphone permission: %w", err)
	}
	if p != devicestate.Granted {
		return ErrPermissionDenied
	}
	return nil
}
