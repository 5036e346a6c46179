package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"meetnote/internal/devicestate"
	"meetnote/internal/logging"
)

// DefaultChannel is the channel every notification is posted on.
var DefaultChannel = devicestate.Channel{ID: "default", Name: "Default", Importance: "max"}

// ErrInvalidPayload is returned by HandleResponse for payloads that are not JSON objects.
var ErrInvalidPayload = errors.New("invalid notification payload")

// State is the persisted device state the bridge reads and writes.
type State interface {
	DeviceID(ctx context.Context) (string, error)
	Permission(ctx context.Context, c devicestate.Capability) (devicestate.Permission, error)
	SetPermission(ctx context.Context, c devicestate.Capability, p devicestate.Permission) error
	EnsureChannel(ctx context.Context, ch devicestate.Channel) (bool, error)
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// TokenRequest identifies this installation to the push token service.
type TokenRequest struct {
	ProjectID   string
	DeviceID    string
	DeviceToken string
	Type        string
}

// TokenIssuer exchanges device identity for a push token.
type TokenIssuer interface {
	IssueToken(ctx context.Context, req TokenRequest) (string, error)
}

// Desktop displays a notification on the local machine.
type Desktop interface {
	Show(ctx context.Context, title, body string) error
}

// Response is a tapped notification.
type Response struct {
	MeetingID string
	Data      map[string]any
}

// BridgeConfig wires a Bridge.
type BridgeConfig struct {
	State       State
	Prompter    Prompter
	Issuer      TokenIssuer
	Desktop     Desktop
	ProjectID   string
	DeviceToken string
	TokenType   string
	Logger      *slog.Logger
}

// Bridge is the process-wide notification bridge. It is safe for concurrent use.
type Bridge struct {
	cfg BridgeConfig
	log *slog.Logger

	tokenMu sync.Mutex
	token   string

	mu        sync.Mutex
	listeners map[int]func(Response)
	nextID    int
	last      *Response
}

var (
	_ TokenSource   = (*Bridge)(nil)
	_ LocalNotifier = (*Bridge)(nil)
)

// NewBridge returns a bridge; no I/O happens until Init.
func NewBridge(cfg BridgeConfig) *Bridge {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		cfg:       cfg,
		log:       log.With(slog.String("component", "notify")),
		listeners: make(map[int]func(Response)),
	}
}

// Init makes sure the default channel exists and then asks for notification permission once.
// The channel must exist before any permission request or token fetch.
func (b *Bridge) Init(ctx context.Context) error {
	if _, err := b.cfg.State.EnsureChannel(ctx, DefaultChannel); err != nil {
		return fmt.Errorf("ensure channel: %w", err)
	}
	if _, err := b.RequestPermission(ctx, devicestate.Notifications, "Allow meetnote to send notifications when transcripts are ready?"); err != nil {
		return err
	}
	return nil
}

// RequestPermission prompts for c only while no decision is stored, and returns the decision.
// Without a prompter an undetermined capability stays undetermined.
func (b *Bridge) RequestPermission(ctx context.Context, c devicestate.Capability, question string) (devicestate.Permission, error) {
	current, err := b.cfg.State.Permission(ctx, c)
	if err != nil {
		return "", err
	}
	if current != devicestate.Undetermined || b.cfg.Prompter == nil {
		return current, nil
	}

	ok, err := b.cfg.Prompter.Confirm(ctx, question)
	if err != nil {
		return "", fmt.Errorf("prompt %s permission: %w", c, err)
	}
	decision := devicestate.Denied
	if ok {
		decision = devicestate.Granted
	}
	if err := b.cfg.State.SetPermission(ctx, c, decision); err != nil {
		return "", err
	}
	b.log.InfoContext(ctx, "permission_decided", slog.String("capability", string(c)), slog.String("status", string(decision)))
	return decision, nil
}

// PushToken returns the device push token, fetching it at most once per successful fetch.
// No permission or no project ID yields "" and a nil error.
func (b *Bridge) PushToken(ctx context.Context) (string, error) {
	b.tokenMu.Lock()
	defer b.tokenMu.Unlock()

	if b.token != "" {
		return b.token, nil
	}
	if b.cfg.ProjectID == "" || b.cfg.Issuer == nil {
		return "", nil
	}
	p, err := b.cfg.State.Permission(ctx, devicestate.Notifications)
	if err != nil {
		return "", err
	}
	if p != devicestate.Granted {
		return "", nil
	}

	deviceID, err := b.cfg.State.DeviceID(ctx)
	if err != nil {
		return "", err
	}
	token, err := b.cfg.Issuer.IssueToken(ctx, TokenRequest{
		ProjectID:   b.cfg.ProjectID,
		DeviceID:    deviceID,
		DeviceToken: b.cfg.DeviceToken,
		Type:        b.cfg.TokenType,
	})
	if err != nil {
		return "", fmt.Errorf("issue push token: %w", err)
	}
	b.token = token
	return token, nil
}

// AddResponseListener registers fn for tapped notifications carrying a meeting ID.
func (b *Bridge) AddResponseListener(fn func(Response)) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// HandleResponse parses a tapped notification's payload, records it as the last response and
// notifies listeners when it names a meeting.
func (b *Bridge) HandleResponse(payload []byte) (Response, error) {
	resp, err := ParseResponse(payload)
	if err != nil {
		return Response{}, err
	}

	b.mu.Lock()
	b.last = &resp
	fns := make([]func(Response), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	if resp.MeetingID == "" {
		return resp, nil
	}
	for _, fn := range fns {
		fn(resp)
	}
	return resp, nil
}

// LastResponse returns the most recently handled response, if any. A process started to open a
// notification reads it to route on cold start.
func (b *Bridge) LastResponse() (Response, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return Response{}, false
	}
	return *b.last, true
}

// ParseResponse extracts the data object and meetingId from a notification payload. The data may sit at
// the top level, under "data", or under notification.request.content.data.
func ParseResponse(payload []byte) (Response, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	data := raw
	if d, ok := dig(raw, "notification", "request", "content", "data"); ok {
		data = d
	} else if d, ok := dig(raw, "data"); ok {
		data = d
	}

	resp := Response{Data: data}
	if id, ok := data["meetingId"].(string); ok {
		resp.MeetingID = id
	}
	return resp, nil
}

func dig(m map[string]any, path ...string) (map[string]any, bool) {
	cur := m
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// NotifyLocal posts a notification on this machine. It is a no-op without granted permission,
// and every failure is swallowed.
func (b *Bridge) NotifyLocal(ctx context.Context, title, body string, data map[string]string) {
	if b.cfg.Desktop == nil {
		return
	}
	p, err := b.cfg.State.Permission(ctx, devicestate.Notifications)
	if err != nil || p != devicestate.Granted {
		return
	}
	if err := b.cfg.Desktop.Show(ctx, title, body); err != nil {
		b.log.DebugContext(ctx, "local_notification_failed", logging.Err(err), slog.Any("data", data))
	}
}
