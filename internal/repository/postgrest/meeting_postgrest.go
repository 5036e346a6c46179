package postgrest

import (
	"context"
	"errors"
	"strings"

	"github.com/supabase-community/postgrest-go"

	"meetnote/internal/model"
	"meetnote/internal/repository"
	"meetnote/internal/supabase"
)

const table = "meetings"

// invalidTextRepresentation is the Postgres error code for a malformed uuid literal.
const invalidTextRepresentation = "22P02"

var newestFirst = &postgrest.OrderOpts{Ascending: false}

// MeetingPostgREST is a repository.MeetingRepository over the Supabase REST interface.
type MeetingPostgREST struct {
	client *supabase.Client
}

// NewMeetingPostgREST creates a new MeetingPostgREST repository.
func NewMeetingPostgREST(client *supabase.Client) *MeetingPostgREST {
	return &MeetingPostgREST{client: client}
}

var _ repository.MeetingRepository = (*MeetingPostgREST)(nil)

type insertRow struct {
	Status     model.Status `json:"status"`
	Transcript *string      `json:"transcript"`
	Summary    *string      `json:"summary"`
	AudioPath  *string      `json:"audio_path"`
	UserID     *string      `json:"user_id,omitempty"`
}

// Create inserts a new meeting row and returns the representation PostgREST echoes back.
func (r *MeetingPostgREST) Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error) {
	rest, err := r.client.REST()
	if err != nil {
		return nil, err
	}

	row := []insertRow{{
		Status:     m.Status,
		Transcript: m.Transcript,
		Summary:    m.Summary,
		AudioPath:  m.AudioPath,
		UserID:     m.UserID,
	}}
	var rows []model.Meeting
	_, err = rest.From(table).
		Insert(row, false, "", "representation", "").
		ExecuteToWithContext(ctx, &rows)
	if err != nil {
		return nil, supabase.FromREST(err)
	}
	if len(rows) == 0 {
		return nil, errors.New("insert returned no rows")
	}
	return &rows[0], nil
}

// FindByID fetches a single meeting by its ID.
func (r *MeetingPostgREST) FindByID(ctx context.Context, id string) (*model.Meeting, error) {
	rest, err := r.client.REST()
	if err != nil {
		return nil, err
	}

	var rows []model.Meeting
	_, err = rest.From(table).
		Select(strings.Join(repository.DetailColumns, ","), "", false).
		Eq("id", id).
		ExecuteToWithContext(ctx, &rows)
	if err != nil {
		err = supabase.FromREST(err)
		if supabase.HasCode(err, invalidTextRepresentation) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &rows[0], nil
}

// List returns all meetings, newest first.
func (r *MeetingPostgREST) List(ctx context.Context) ([]model.Meeting, error) {
	rest, err := r.client.REST()
	if err != nil {
		return nil, err
	}

	items := make([]model.Meeting, 0)
	_, err = rest.From(table).
		Select(strings.Join(repository.ListColumns, ","), "", false).
		Order("created_at", newestFirst).
		ExecuteToWithContext(ctx, &items)
	if err != nil {
		return nil, supabase.FromREST(err)
	}
	return items, nil
}

// PingContext issues a one-row read to check the API and the table are reachable.
func (r *MeetingPostgREST) PingContext(ctx context.Context) error {
	rest, err := r.client.REST()
	if err != nil {
		return err
	}
	_, _, err = rest.From(table).Select("id", "", false).Limit(1, "").ExecuteWithContext(ctx)
	return supabase.FromREST(err)
}
