// Package backend talks to the external processing service that transcribes and summarizes
// uploaded recordings and writes the results back to the meetings table.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"meetnote/internal/config"
)

// ProcessRequest is the handoff body for POST /process-meeting.
type ProcessRequest struct {
	AudioURL  string `json:"audio_url"`
	MeetingID string `json:"meeting_id"`
	PushToken string `json:"push_token,omitempty"`
}

// StatusError is a non-2xx answer from the processing service.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %d", e.StatusCode)
}

// Processor is what the upload flow needs from the processing service.
type Processor interface {
	ProcessMeeting(ctx context.Context, req ProcessRequest) error
}

// Client calls the processing service. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient builds a client for cfg.URL; a nil httpClient gets an otelhttp-traced one
// bounded by cfg.Timeout.
func NewClient(cfg config.BackendConfig, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    httpClient,
		log:     log.With(slog.String("component", "backend")),
	}
}

var _ Processor = (*Client)(nil)

// ProcessMeeting hands a stored recording off for transcription. The service answers quickly
// and finishes the work asynchronously; only the acceptance is reported here.
func (c *Client) ProcessMeeting(ctx context.Context, pr ProcessRequest) error {
	body, err := json.Marshal(pr)
	if err != nil {
		return fmt.Errorf("encode process request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-meeting", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build process request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		serr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
		c.log.ErrorContext(ctx, "process_meeting_rejected",
			slog.String("meeting_id", pr.MeetingID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", serr.Body),
		)
		return serr
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health calls GET /health and fails on anything but 2xx.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
