package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"meetnote/internal/backend"
	"meetnote/internal/logging"
	"meetnote/internal/metrics"
	"meetnote/internal/model"
	"meetnote/internal/notify"
	"meetnote/internal/repository"
	"meetnote/internal/storage"
	"meetnote/internal/supabase"
)

const (
	recordingContentType = "audio/mp4"
	keyAlphabet          = "0123456789abcdefghijklmnopqrstuvwxyz"
	keySuffixLen         = 10

	uploadedTitle = "Recording uploaded"
	uploadedBody  = "We'll notify you when the transcript is ready."
)

var (
	ErrNotConfigured    = supabase.ErrNotConfigured
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("meeting not found")
	ErrEmptyRecording   = errors.New("recording is empty")
	ErrNoAudio          = errors.New("meeting has no recording")
	ErrNotRetriggerable = errors.New("meeting is already processing or done")
)

// UploadResult is the outcome of a completed upload. HandoffErr is set when the meeting row
// exists but the processing backend did not accept it; MeetingID stays usable either way.
type UploadResult struct {
	MeetingID  string `json:"meeting_id"`
	HandoffErr error  `json:"-"`
}

// Partial reports whether the row was created but processing was not started.
func (r *UploadResult) Partial() bool {
	return r != nil && r.HandoffErr != nil
}

// Warning is the user-facing text for a partial result.
func (r *UploadResult) Warning() string {
	if !r.Partial() {
		return ""
	}
	return r.HandoffErr.Error()
}

// MeetingService defines the use cases for recorded meetings.
type MeetingService interface {
	// UploadAndProcess reads a finished recording from disk and runs UploadRecording on it.
	UploadAndProcess(ctx context.Context, localPath string) (*UploadResult, error)

	// UploadRecording uploads the audio, inserts a pending meeting row (deleting the object again if
	// the insert fails) and hands the meeting off to the processing backend.
	UploadRecording(ctx context.Context, audio []byte) (*UploadResult, error)

	// List returns all meetings, newest first.
	List(ctx context.Context) ([]model.Meeting, error)

	// Get returns a single meeting by its ID.
	Get(ctx context.Context, id string) (*model.Meeting, error)

	// Retrigger repeats the processing handoff for a meeting whose first handoff failed.
	Retrigger(ctx context.Context, id string) error
}

// Options carries the optional collaborators of the meeting service.
type Options struct {
	// Configured is false when the hosted storage/database endpoint or key is missing.
	Configured   bool
	SignedURLTTL time.Duration
	Tokens       notify.TokenSource
	Notifier     notify.LocalNotifier
	Uploads      *metrics.Uploads
	Logger       *slog.Logger
	Now          func() time.Time
}

// meetingService is a concrete implementation of MeetingService.
type meetingService struct {
	store     storage.Storage
	repo      repository.MeetingRepository
	processor backend.Processor
	opts      Options
	log       *slog.Logger
}

// NewMeetingService constructs a new MeetingService.
func NewMeetingService(store storage.Storage, repo repository.MeetingRepository, processor backend.Processor, opts Options) MeetingService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &meetingService{
		store:     store,
		repo:      repo,
		processor: processor,
		opts:      opts,
		log:       log.With(slog.String("component", "meeting_service")),
	}
}

func (s *meetingService) UploadAndProcess(ctx context.Context, localPath string) (*UploadResult, error) {
	if !s.opts.Configured {
		s.opts.Uploads.Observe(metrics.OutcomeFailed)
		return nil, ErrNotConfigured
	}
	audio, err := os.ReadFile(localPath)
	if err != nil {
		s.opts.Uploads.Observe(metrics.OutcomeFailed)
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return s.UploadRecording(ctx, audio)
}

func (s *meetingService) UploadRecording(ctx context.Context, audio []byte) (*UploadResult, error) {
	res, err := s.upload(ctx, audio)
	switch {
	case err != nil:
		s.opts.Uploads.Observe(metrics.OutcomeFailed)
	case res.Partial():
		s.opts.Uploads.Observe(metrics.OutcomePartial)
	default:
		s.opts.Uploads.Observe(metrics.OutcomeSuccess)
	}
	return res, err
}

func (s *meetingService) upload(ctx context.Context, audio []byte) (*UploadResult, error) {
	if !s.opts.Configured {
		return nil, ErrNotConfigured
	}
	if len(audio) == 0 {
		return nil, ErrEmptyRecording
	}

	key := s.newKey()
	_, err := s.store.Put(ctx, key, bytes.NewReader(audio), storage.PutObjectOptions{
		Size:        int64(len(audio)),
		ContentType: recordingContentType,
		Upsert:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	audioURL, err := storage.FetchURL(ctx, s.store, key, s.opts.SignedURLTTL)
	if err != nil {
		s.rollback(ctx, key)
		return nil, fmt.Errorf("resolve audio url: %w", err)
	}

	stored, err := s.repo.Create(ctx, model.NewPendingMeeting(key))
	if err != nil {
		s.rollback(ctx, key)
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.log.InfoContext(ctx, "meeting_uploaded",
		slog.String("meeting_id", stored.ID),
		slog.String("audio_path", key),
		slog.Int("bytes", len(audio)),
	)
	if s.opts.Notifier != nil {
		s.opts.Notifier.NotifyLocal(ctx, uploadedTitle, uploadedBody, map[string]string{"meetingId": stored.ID})
	}

	res := &UploadResult{MeetingID: stored.ID}
	if err := s.handoff(ctx, stored.ID, audioURL); err != nil {
		res.HandoffErr = err
	}
	return res, nil
}

// rollback removes an object whose meeting row could not be written. The original error wins.
func (s *meetingService) rollback(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.WarnContext(ctx, "rollback_delete_failed", slog.String("audio_path", key), logging.Err(err))
	}
}

func (s *meetingService) handoff(ctx context.Context, meetingID, audioURL string) error {
	req := backend.ProcessRequest{
		AudioURL:  audioURL,
		MeetingID: meetingID,
		PushToken: s.pushToken(ctx),
	}
	if err := s.processor.ProcessMeeting(ctx, req); err != nil {
		s.log.WarnContext(ctx, "handoff_failed", slog.String("meeting_id", meetingID), logging.Err(err))
		return err
	}
	return nil
}

func (s *meetingService) pushToken(ctx context.Context) string {
	if s.opts.Tokens == nil {
		return ""
	}
	token, err := s.opts.Tokens.PushToken(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "push_token_unavailable", logging.Err(err))
		return ""
	}
	return token
}

// newKey returns meetings/<unix-millis>-<base36 random>.m4a.
func (s *meetingService) newKey() string {
	suffix := make([]byte, keySuffixLen)
	for i := range suffix {
		suffix[i] = keyAlphabet[rand.IntN(len(keyAlphabet))]
	}
	return fmt.Sprintf("meetings/%d-%s.m4a", s.opts.Now().UnixMilli(), suffix)
}

func (s *meetingService) List(ctx context.Context) ([]model.Meeting, error) {
	if !s.opts.Configured {
		return nil, ErrNotConfigured
	}
	return s.repo.List(ctx)
}

func (s *meetingService) Get(ctx context.Context, id string) (*model.Meeting, error) {
	if !s.opts.Configured {
		return nil, ErrNotConfigured
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *meetingService) Retrigger(ctx context.Context, id string) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.Status != model.StatusPending && m.Status != model.StatusError {
		return ErrNotRetriggerable
	}
	if m.AudioPath == nil || *m.AudioPath == "" {
		return ErrNoAudio
	}

	audioURL, err := storage.FetchURL(ctx, s.store, *m.AudioPath, s.opts.SignedURLTTL)
	if err != nil {
		return fmt.Errorf("resolve audio url: %w", err)
	}
	return s.handoff(ctx, m.ID, audioURL)
}
