package repository

import (
	"context"
	"errors"

	"meetnote/internal/model"
)

// ErrNotFound is returned when no meeting matches the requested ID.
var ErrNotFound = errors.New("meeting not found")

// MeetingRepository defines data access for meetings.
// No business logic here, strictly persistence operations. The client only creates and reads rows;
// status, transcript and summary are written by the processing backend.
type MeetingRepository interface {
	// Create inserts a new meeting record and returns the stored row with the
	// database-assigned ID and CreatedAt.
	Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error)

	// FindByID returns a meeting by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Meeting, error)

	// List returns every meeting ordered by created_at descending.
	List(ctx context.Context) ([]model.Meeting, error)

	// PingContext checks that the backing store is reachable.
	PingContext(ctx context.Context) error
}

// ListColumns is the projection used by list views.
var ListColumns = []string{"id", "created_at", "status", "transcript", "summary"}

// DetailColumns is the projection used by the detail view.
var DetailColumns = []string{"id", "created_at", "status", "transcript", "summary", "audio_path"}
