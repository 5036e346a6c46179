package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetnote/internal/model"
	"meetnote/internal/repository"
)

const testID = "5f8d0d55-4c1e-4f6a-9b1e-2a7c3e9d8b10"

func TestMeetingPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewMeetingPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	in := model.NewPendingMeeting("meetings/1-abc.m4a")

	rows := sqlmock.NewRows([]string{"id", "created_at", "status", "transcript", "summary", "audio_path"}).
		AddRow(testID, now, "pending", nil, nil, "meetings/1-abc.m4a")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO meetings (status,transcript,summary,audio_path,user_id) VALUES ($1,$2,$3,$4,$5) RETURNING")).
		WithArgs("pending", nil, nil, "meetings/1-abc.m4a", nil).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, in)

	require.NoError(t, err)
	assert.Equal(t, testID, result.ID)
	assert.Equal(t, model.StatusPending, result.Status)
	assert.Nil(t, result.Transcript)
	assert.Nil(t, result.Summary)
	require.NotNil(t, result.AudioPath)
	assert.Equal(t, "meetings/1-abc.m4a", *result.AudioPath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewMeetingPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "created_at", "status", "transcript", "summary", "audio_path"}).
			AddRow(testID, time.Now(), "ready", "hello", "short", "meetings/1-abc.m4a")

		mock.ExpectQuery("SELECT (.+) FROM meetings WHERE id = ?").
			WithArgs(testID).
			WillReturnRows(rows)

		m, err := repo.FindByID(ctx, testID)

		require.NoError(t, err)
		assert.Equal(t, testID, m.ID)
		assert.Equal(t, model.StatusReady, m.Status)
		assert.Equal(t, "hello", m.TranscriptText())
		assert.Equal(t, "short", m.SummaryText())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM meetings WHERE id = ?").
			WithArgs(testID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		m, err := repo.FindByID(ctx, testID)

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, m)
	})

	t.Run("malformed id", func(t *testing.T) {
		m, err := repo.FindByID(ctx, "not-a-uuid")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, m)
	})

	t.Run("transport error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM meetings WHERE id = ?").
			WithArgs(testID).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.FindByID(ctx, testID)

		require.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewMeetingPostgres(db)

	newer := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "created_at", "status", "transcript", "summary"}).
		AddRow("b", newer, "processing", nil, nil).
		AddRow("a", older, "ready", "t", "s")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, status, transcript, summary FROM meetings ORDER BY created_at DESC")).
		WillReturnRows(rows)

	items, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, model.StatusProcessing, items[0].Status)
	assert.Nil(t, items[0].Transcript)
	assert.Equal(t, "a", items[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingPostgres_List_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM meetings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "status", "transcript", "summary"}))

	items, err := NewMeetingPostgres(db).List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestMeetingPostgres_PingContext(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	assert.NoError(t, NewMeetingPostgres(db).PingContext(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
