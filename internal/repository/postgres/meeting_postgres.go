package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"meetnote/internal/model"
	"meetnote/internal/repository"
)

const tableMeetings = "meetings"

// MeetingPostgres is a PostgreSQL implementation of repository.MeetingRepository.
// It uses database/sql with squirrel-built parameterized queries and contains no business logic.
type MeetingPostgres struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

// NewMeetingPostgres creates a new MeetingPostgres repository.
func NewMeetingPostgres(db *sql.DB) *MeetingPostgres {
	return &MeetingPostgres{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ repository.MeetingRepository = (*MeetingPostgres)(nil)

// Create inserts a new meeting row and returns the stored record.
// id and created_at come from column defaults.
func (r *MeetingPostgres) Create(ctx context.Context, m *model.Meeting) (*model.Meeting, error) {
	q, args, err := r.qb.
		Insert(tableMeetings).
		Columns("status", "transcript", "summary", "audio_path", "user_id").
		Values(string(m.Status), m.Transcript, m.Summary, m.AudioPath, m.UserID).
		Suffix("RETURNING id, created_at, status, transcript, summary, audio_path").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	var out model.Meeting
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&out.ID,
		&out.CreatedAt,
		&out.Status,
		&out.Transcript,
		&out.Summary,
		&out.AudioPath,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single meeting by its ID.
func (r *MeetingPostgres) FindByID(ctx context.Context, id string) (*model.Meeting, error) {
	// A malformed ID cannot match a uuid column; report it as missing instead of a cast error.
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}

	q, args, err := r.qb.
		Select(repository.DetailColumns...).
		From(tableMeetings).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var m model.Meeting
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(
		&m.ID,
		&m.CreatedAt,
		&m.Status,
		&m.Transcript,
		&m.Summary,
		&m.AudioPath,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns all meetings, newest first.
func (r *MeetingPostgres) List(ctx context.Context) ([]model.Meeting, error) {
	q, args, err := r.qb.
		Select(repository.ListColumns...).
		From(tableMeetings).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Meeting, 0)
	for rows.Next() {
		var m model.Meeting
		if err := rows.Scan(
			&m.ID,
			&m.CreatedAt,
			&m.Status,
			&m.Transcript,
			&m.Summary,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// PingContext verifies the connection is alive.
func (r *MeetingPostgres) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
