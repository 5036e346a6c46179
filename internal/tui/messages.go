package tui

import "meetnote/internal/audio"

// startedMsg is sent once ffmpeg is running.
type startedMsg struct{}

// stateMsg carries a recorder state update.
type stateMsg struct {
	State audio.State
}

// stoppedMsg is sent when the recording has been finalized.
type stoppedMsg struct {
	Path string
	Err  error
}

// errMsg reports a failure to start.
type errMsg struct {
	Err error
}
