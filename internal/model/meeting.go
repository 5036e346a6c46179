package model

import "time"

// Status is the processing state of a meeting. Transitions are driven by the external
// processing backend; the client only ever writes StatusPending on creation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the backend has finished with the meeting.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Label is the human-readable status shown in lists.
func (s Status) Label() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusProcessing:
		return "Processing…"
	case StatusError:
		return "Error"
	default:
		return "Pending"
	}
}

// Meeting represents one recorded meeting and its processing status.
// Nullable columns are pointers so that "not yet populated" survives a round trip.
type Meeting struct {
	ID         string    `json:"id" csv:"id"`
	CreatedAt  time.Time `json:"created_at" csv:"created_at"`
	Status     Status    `json:"status" csv:"status"`
	Transcript *string   `json:"transcript" csv:"transcript,omitempty"`
	Summary    *string   `json:"summary" csv:"summary,omitempty"`
	AudioPath  *string   `json:"audio_path,omitempty" csv:"audio_path,omitempty"`
	UserID     *string   `json:"user_id,omitempty" csv:"-"`
}

// NewPendingMeeting builds the row inserted right after a recording is uploaded.
func NewPendingMeeting(audioPath string) *Meeting {
	return &Meeting{
		Status:    StatusPending,
		AudioPath: &audioPath,
	}
}

// TranscriptText returns the transcript or "" when it has not been populated.
func (m *Meeting) TranscriptText() string {
	if m.Transcript == nil {
		return ""
	}
	return *m.Transcript
}

// SummaryText returns the summary or "" when it has not been populated.
func (m *Meeting) SummaryText() string {
	if m.Summary == nil {
		return ""
	}
	return *m.Summary
}

// StatusHint describes what the user is waiting for while there is no transcript.
func (m *Meeting) StatusHint() string {
	if m.TranscriptText() != "" {
		return ""
	}
	switch m.Status {
	case StatusProcessing:
		return "Transcript is being generated…"
	case StatusPending:
		return "Recording is being processed."
	}
	return ""
}
