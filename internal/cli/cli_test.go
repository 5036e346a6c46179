package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetnote/internal/audio"
	"meetnote/internal/config"
	"meetnote/internal/model"
	"meetnote/internal/tui"
)

// hosted fakes Supabase storage, PostgREST and the processing backend on one server.
type hosted struct {
	mu        sync.Mutex
	meetings  []model.Meeting
	objects   []string
	processed []string
	listFails int
}

func (h *hosted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasPrefix(r.URL.Path, "/storage/v1/object/recordings/") && r.Method == http.MethodPost:
		key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/recordings/")
		h.objects = append(h.objects, key)
		fmt.Fprintf(w, `{"Key":"recordings/%s","Id":"obj"}`, key)

	case r.URL.Path == "/rest/v1/meetings" && r.Method == http.MethodPost:
		var rows []model.Meeting
		_ = json.NewDecoder(r.Body).Decode(&rows)
		m := rows[0]
		m.ID = fmt.Sprintf("m-%d", len(h.meetings)+1)
		m.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		h.meetings = append(h.meetings, m)
		json.NewEncoder(w).Encode([]model.Meeting{m})

	case r.URL.Path == "/rest/v1/meetings" && r.Method == http.MethodGet:
		if id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq."); id != "" {
			out := []model.Meeting{}
			for _, m := range h.meetings {
				if m.ID == id {
					out = append(out, m)
				}
			}
			json.NewEncoder(w).Encode(out)
			return
		}
		if h.listFails > 0 {
			h.listFails--
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"database unavailable"}`))
			return
		}
		json.NewEncoder(w).Encode(h.meetings)

	case r.URL.Path == "/process-meeting":
		var req struct {
			MeetingID string `json:"meeting_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		h.processed = append(h.processed, req.MeetingID)
		w.Write([]byte(`{"status":"accepted"}`))

	case r.URL.Path == "/health":
		w.Write([]byte(`{"status":"ok"}`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fakeRecorder struct {
	path      string
	ffmpegErr error
}

func (f *fakeRecorder) Start(context.Context) error { return nil }
func (f *fakeRecorder) Stop() (string, error)       { return f.path, nil }
func (f *fakeRecorder) State() audio.State          { return audio.State{} }
func (f *fakeRecorder) CheckFFmpeg() error          { return f.ffmpegErr }

type fakeDesktop struct{ shown []string }

func (d *fakeDesktop) Show(_ context.Context, title, _ string) error {
	d.shown = append(d.shown, title)
	return nil
}

type harness struct {
	cli    *CLI
	out    *bytes.Buffer
	hosted *hosted
	rec    *fakeRecorder
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	h := &hosted{}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	stateDir := t.TempDir()
	cfg := &config.AppConfig{
		LogLevel: "error",
		StateDir: stateDir,
		Supabase: config.SupabaseConfig{URL: srv.URL, AnonKey: "anon"},
		Storage:  config.StorageConfig{Driver: "supabase", Bucket: "recordings"},
		Database: config.DatabaseConfig{Driver: "postgrest"},
		Backend:  config.BackendConfig{URL: srv.URL, Timeout: 5 * time.Second},
		Push:     config.PushConfig{TokenURL: srv.URL + "/token"},
		Recorder: config.RecorderConfig{FFmpegPath: "ffmpeg", OutputDir: filepath.Join(stateDir, "recordings")},
	}

	rec := &fakeRecorder{}
	out := &bytes.Buffer{}
	c := &CLI{
		In:     strings.NewReader(input),
		Out:    out,
		Err:    io.Discard,
		Loc:    time.UTC,
		Config: cfg,
		NewRecorder: func(config.RecorderConfig) Recorder {
			return rec
		},
		RunRecorder: func(ctx context.Context, r tui.Recorder) (string, error) {
			return r.Stop()
		},
		Desktop: &fakeDesktop{},
	}
	return &harness{cli: c, out: out, hosted: h, rec: rec}
}

func (h *harness) run(args ...string) error {
	return h.cli.Command().Run(context.Background(), append([]string{"meetnote"}, args...))
}

func writeRecording(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "take.m4a")
	require.NoError(t, os.WriteFile(path, []byte("m4a-bytes"), 0o644))
	return path
}

func TestUpload(t *testing.T) {
	h := newHarness(t, "")
	path := writeRecording(t, t.TempDir())

	require.NoError(t, h.run("upload", path))

	assert.Len(t, h.hosted.objects, 1)
	assert.Equal(t, []string{"m-1"}, h.hosted.processed)
	assert.Contains(t, h.out.String(), "Uploaded meeting m-1")
	assert.Contains(t, h.out.String(), "Meeting m-1")
}

func TestUpload_MissingArgument(t *testing.T) {
	h := newHarness(t, "")
	assert.EqualError(t, h.run("upload"), "missing <file> argument")
}

func TestRecord(t *testing.T) {
	h := newHarness(t, "y\ny\n")
	h.rec.path = writeRecording(t, t.TempDir())

	require.NoError(t, h.run("record"))

	assert.Equal(t, []string{"m-1"}, h.hosted.processed)
	assert.Contains(t, h.out.String(), "Allow meetnote to send notifications")
	assert.Contains(t, h.out.String(), "Allow meetnote to use the microphone")
	assert.Contains(t, h.out.String(), "Uploaded meeting m-1")
	assert.Equal(t, []string{"Recording uploaded"}, h.cli.Desktop.(*fakeDesktop).shown)
}

func TestRecord_MicrophoneDenied(t *testing.T) {
	h := newHarness(t, "n\nn\n")

	err := h.run("record")
	assert.ErrorIs(t, err, audio.ErrPermissionDenied)
	assert.Empty(t, h.hosted.objects)

	// The decision is remembered; no second prompt.
	h.out.Reset()
	h.cli.In = strings.NewReader("")
	err = h.run("record")
	assert.ErrorIs(t, err, audio.ErrPermissionDenied)
	assert.NotContains(t, h.out.String(), "microphone")
}

func TestRecord_Cancelled(t *testing.T) {
	h := newHarness(t, "y\ny\n")
	path := writeRecording(t, t.TempDir())
	h.cli.RunRecorder = func(context.Context, tui.Recorder) (string, error) {
		return path, tui.ErrCancelled
	}

	require.NoError(t, h.run("record"))

	assert.NoFileExists(t, path)
	assert.Empty(t, h.hosted.objects)
	assert.Contains(t, h.out.String(), "Recording discarded.")
}

func TestRecord_EmptyPathNotUploaded(t *testing.T) {
	h := newHarness(t, "y\ny\n")
	h.cli.RunRecorder = func(context.Context, tui.Recorder) (string, error) {
		return "", nil
	}

	err := h.run("record")
	assert.ErrorIs(t, err, audio.ErrNoRecording)
	assert.Equal(t, "No recording was produced; nothing was uploaded.", UserMessage(err))
	assert.Empty(t, h.hosted.objects)
	assert.NotContains(t, h.out.String(), "Uploading")
}

func TestRecord_FFmpegMissing(t *testing.T) {
	h := newHarness(t, "y\ny\n")
	h.rec.ffmpegErr = fmt.Errorf("ffmpeg not found")

	assert.EqualError(t, h.run("record"), "ffmpeg not found")
	assert.Empty(t, h.hosted.objects)
}

func TestList(t *testing.T) {
	h := newHarness(t, "")
	summary := "Agreed on the Q3 roadmap."
	h.hosted.meetings = []model.Meeting{
		{ID: "m-2", Status: model.StatusReady, Summary: &summary, CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		{ID: "m-1", Status: model.StatusPending, CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}

	require.NoError(t, h.run("list"))

	out := h.out.String()
	assert.Contains(t, out, "m-2")
	assert.Contains(t, out, "Agreed on the Q3 roadmap.")
	assert.Less(t, strings.Index(out, "m-2"), strings.Index(out, "m-1"))
}

func TestList_Empty(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run("list"))
	assert.Contains(t, h.out.String(), "No meetings yet.")
}

func TestList_CSV(t *testing.T) {
	h := newHarness(t, "")
	h.hosted.meetings = []model.Meeting{{ID: "m-1", Status: model.StatusReady}}

	require.NoError(t, h.run("list", "--csv"))

	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,created_at,status"))
	assert.True(t, strings.HasPrefix(lines[1], "m-1,"))
}

func TestList_RetryAfterError(t *testing.T) {
	h := newHarness(t, "y\n")
	h.hosted.listFails = 1
	h.hosted.meetings = []model.Meeting{{ID: "m-1", Status: model.StatusReady}}

	require.NoError(t, h.run("list"))

	out := h.out.String()
	assert.Contains(t, out, "database unavailable")
	assert.Contains(t, out, "Retry? [y/N]")
	assert.Contains(t, out, "m-1")
}

func TestList_ErrorWithoutRetry(t *testing.T) {
	h := newHarness(t, "")
	h.hosted.listFails = 1

	assert.ErrorIs(t, h.run("list"), ErrReported)
	assert.Contains(t, h.out.String(), "database unavailable")
}

func TestList_NotConfigured(t *testing.T) {
	h := newHarness(t, "")
	h.cli.Config.Supabase = config.SupabaseConfig{}

	assert.ErrorIs(t, h.run("list"), ErrReported)
	assert.Contains(t, h.out.String(), "Supabase not configured")
}

func TestShow(t *testing.T) {
	h := newHarness(t, "")
	transcript := "Hello everyone."
	h.hosted.meetings = []model.Meeting{{ID: "m-1", Status: model.StatusReady, Transcript: &transcript}}

	require.NoError(t, h.run("show", "m-1"))
	assert.Contains(t, h.out.String(), "Hello everyone.")
}

func TestShow_NotFound(t *testing.T) {
	h := newHarness(t, "")
	err := h.run("show", "missing")
	require.Error(t, err)
	assert.Equal(t, "Meeting not found", UserMessage(err))
}

func TestShow_Wait(t *testing.T) {
	h := newHarness(t, "")
	h.hosted.meetings = []model.Meeting{{ID: "m-1", Status: model.StatusProcessing}}

	go func() {
		time.Sleep(30 * time.Millisecond)
		h.hosted.mu.Lock()
		h.hosted.meetings[0].Status = model.StatusReady
		h.hosted.mu.Unlock()
	}()

	require.NoError(t, h.run("show", "--wait", "--interval", "10ms", "m-1"))
	out := h.out.String()
	assert.Contains(t, out, "Processing")
	assert.Contains(t, out, "Ready")
}

func TestExport(t *testing.T) {
	h := newHarness(t, "")
	h.hosted.meetings = []model.Meeting{{ID: "m-1", Status: model.StatusReady}}
	dst := filepath.Join(t.TempDir(), "m-1.pdf")

	require.NoError(t, h.run("export", "--pdf", dst, "m-1"))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestRetrigger(t *testing.T) {
	h := newHarness(t, "")
	key := "meetings/1-abc.m4a"
	h.hosted.meetings = []model.Meeting{{ID: "m-1", Status: model.StatusError, AudioPath: &key}}

	require.NoError(t, h.run("retrigger", "m-1"))
	assert.Equal(t, []string{"m-1"}, h.hosted.processed)
}

func TestNotificationOpen(t *testing.T) {
	h := newHarness(t, "")
	h.hosted.meetings = []model.Meeting{{ID: "m-7", Status: model.StatusReady}}

	require.NoError(t, h.run("notification", "open", `{"notification":{"request":{"content":{"data":{"meetingId":"m-7"}}}}}`))
	assert.Contains(t, h.out.String(), "Opening meeting m-7")
	assert.Contains(t, h.out.String(), "Meeting m-7")
}

func TestNotificationOpen_NoMeeting(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("notification", "open", `{"data":{"kind":"promo"}}`))
	assert.Contains(t, h.out.String(), "does not reference a meeting")
	assert.NotContains(t, h.out.String(), "Opening meeting")
}

func TestNotificationToken_NoProjectID(t *testing.T) {
	h := newHarness(t, "y\n")
	assert.ErrorContains(t, h.run("notification", "token"), "no push token")
}

func TestPermissions(t *testing.T) {
	h := newHarness(t, "y\nn\n")
	require.ErrorIs(t, h.run("record"), audio.ErrPermissionDenied)

	h.out.Reset()
	require.NoError(t, h.run("permissions"))
	assert.Regexp(t, `microphone\s+denied`, h.out.String())
	assert.Regexp(t, `notifications\s+granted`, h.out.String())

	require.NoError(t, h.run("permissions", "reset"))
	h.out.Reset()
	require.NoError(t, h.run("permissions"))
	assert.Regexp(t, `microphone\s+undetermined`, h.out.String())
}

func TestDoctor(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run("doctor"))
	out := h.out.String()
	assert.Contains(t, out, "✓ ffmpeg")
	assert.Contains(t, out, "audio session")
	assert.Contains(t, out, "ignored on this host: plays_in_silent_mode, interruption_mode=duck_others")
	assert.Contains(t, out, "✓ supabase")
	assert.Contains(t, out, "✓ backend")
	assert.Contains(t, out, "✗ push")
}

func TestDoctor_BackendDown(t *testing.T) {
	h := newHarness(t, "")
	h.cli.Config.Backend.URL = "http://127.0.0.1:1"

	assert.ErrorIs(t, h.run("doctor"), ErrReported)
	assert.Contains(t, h.out.String(), "✗ backend")
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t, "")
	path := filepath.Join(t.TempDir(), "meetnote.yaml")
	require.NoError(t, os.WriteFile(path, []byte("push:\n  project_id: from-file\n"), 0o644))

	require.NoError(t, h.run("--config", path, "permissions"))
	assert.Equal(t, "from-file", h.cli.Config.Push.ProjectID)
}

func TestFlagsOverrideConfig(t *testing.T) {
	h := newHarness(t, "")
	dir := t.TempDir()

	require.NoError(t, h.run("--state-dir", dir, "--backend-url", "http://backend.test", "permissions"))
	assert.Equal(t, "http://backend.test", h.cli.Config.Backend.URL)
	assert.Equal(t, filepath.Join(dir, "recordings"), h.cli.Config.Recorder.OutputDir)
	assert.FileExists(t, filepath.Join(dir, "device.sqlite"))
}

func TestValidateConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "c.yml")
	bad := filepath.Join(dir, "c.toml")
	require.NoError(t, os.WriteFile(good, nil, 0o644))
	require.NoError(t, os.WriteFile(bad, nil, 0o644))

	assert.NoError(t, validateConfig(good))
	assert.ErrorContains(t, validateConfig(bad), "invalid extension")
	assert.ErrorContains(t, validateConfig(dir), "is a directory")
	assert.ErrorContains(t, validateConfig(filepath.Join(dir, "nope.yaml")), "does not exist")
}

func TestLinePrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := newLinePrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm(context.Background(), "Continue?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(out.String(), "Continue? [y/N] "))
		})
	}
}
