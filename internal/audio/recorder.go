package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"meetnote/internal/config"
)

// StateInterval is how often a running recorder publishes its state.
const StateInterval = 500 * time.Millisecond

const stopTimeout = 10 * time.Second

var (
	ErrNoRecording      = errors.New("no recording was produced")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// State is a snapshot of the recorder.
type State struct {
	Recording      bool
	DurationMillis int64
	Path           string
}

// Recorder manages ffmpeg-based microphone recording. One recording runs at a time.
type Recorder struct {
	cfg     config.RecorderConfig
	mode    SessionMode
	preset  Preset
	now     func() time.Time
	command func(name string, args ...string) *exec.Cmd

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	logFile   *os.File
	procDone  chan struct{}
	stopTick  context.CancelFunc
	group     *errgroup.Group
	stopping  bool
	path      string
	startedAt time.Time
	last      State

	subMu   sync.Mutex
	subs    map[int]chan State
	nextSub int
}

// NewRecorder returns a recorder for the configured input device.
func NewRecorder(cfg config.RecorderConfig, mode SessionMode, preset Preset) *Recorder {
	return &Recorder{
		cfg:     cfg,
		mode:    mode,
		preset:  preset,
		now:     time.Now,
		command: exec.Command,
		subs:    make(map[int]chan State),
	}
}

// CheckFFmpeg reports whether the configured ffmpeg binary can be found.
func (r *Recorder) CheckFFmpeg() error {
	if _, err := exec.LookPath(r.cfg.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found (%s). Install ffmpeg or set RECORDER_FFMPEG", r.cfg.FFmpegPath)
	}
	return nil
}

// Args returns the ffmpeg arguments for recording into outputPath.
func (r *Recorder) Args(outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostats",
		"-loglevel", "error",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.InputDevice,
		"-c:a", r.preset.Codec,
		"-ar", strconv.Itoa(r.preset.SampleRate),
		"-ac", strconv.Itoa(r.preset.Channels),
		"-b:a", strconv.Itoa(r.preset.BitRate),
		"-f", r.preset.Container,
		"-y",
		outputPath,
	}
}

// Start launches ffmpeg and begins publishing state. The recording keeps running until Stop;
// ctx only bounds the state publisher.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.mode.AllowsRecording {
		return errors.New("audio session does not allow recording")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	now := r.now()
	path := filepath.Join(r.cfg.OutputDir, "recording-"+now.Format("20060102-150405")+r.preset.Extension)

	cmd := r.command(r.cfg.FFmpegPath, r.Args(path)...)
	if r.mode.ShouldPlayInBackground {
		detachProcessGroup(cmd)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if logFile, err := os.Create(path + ".ffmpeg.log"); err == nil {
		cmd.Stderr = logFile
		r.logFile = logFile
	}
	if err := cmd.Start(); err != nil {
		r.closeLog()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	tickCtx, cancel := context.WithCancel(ctx)
	procDone := make(chan struct{})
	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(procDone)
		return cmd.Wait()
	})
	g.Go(func() error {
		r.tick(tickCtx, procDone)
		return nil
	})

	r.cmd, r.stdin, r.procDone, r.stopTick, r.group = cmd, stdin, procDone, cancel, g
	r.path, r.startedAt = path, now
	r.last = State{Recording: true, Path: path}
	r.publish(r.last)
	return nil
}

func (r *Recorder) tick(ctx context.Context, procDone <-chan struct{}) {
	t := time.NewTicker(StateInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-procDone:
			return
		case <-t.C:
			r.publish(r.State())
		}
	}
}

// Stop asks ffmpeg to finish the file, waits for it to exit and returns the recording path.
// A missing or empty file yields ErrNoRecording; the caller must not upload in that case.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if r.cmd == nil || r.stopping {
		r.mu.Unlock()
		return "", ErrNotRecording
	}
	r.stopping = true
	cmd, stdin, procDone, stopTick, g := r.cmd, r.stdin, r.procDone, r.stopTick, r.group
	r.mu.Unlock()

	// "q" on stdin makes ffmpeg flush and write the MP4 index before exiting.
	_, _ = io.WriteString(stdin, "q")
	_ = stdin.Close()

	select {
	case <-procDone:
	case <-time.After(stopTimeout):
		_ = cmd.Process.Kill()
		<-procDone
	}
	stopTick()
	waitErr := g.Wait()

	r.mu.Lock()
	r.closeLog()
	path := r.path
	final := State{Recording: false, DurationMillis: r.now().Sub(r.startedAt).Milliseconds(), Path: path}
	r.cmd, r.stdin, r.procDone, r.stopTick, r.group = nil, nil, nil, nil, nil
	r.stopping = false
	r.last = final
	r.mu.Unlock()
	r.publish(final)

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		if waitErr != nil {
			return "", fmt.Errorf("%w: ffmpeg: %v", ErrNoRecording, waitErr)
		}
		return "", ErrNoRecording
	}
	return path, nil
}

func (r *Recorder) closeLog() {
	if r.logFile != nil {
		_ = r.logFile.Close()
		r.logFile = nil
	}
}

// State returns the current recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil {
		return r.last
	}
	running := true
	select {
	case <-r.procDone:
		running = false
	default:
	}
	return State{
		Recording:      running,
		DurationMillis: r.now().Sub(r.startedAt).Milliseconds(),
		Path:           r.path,
	}
}

// Subscribe returns a channel of state updates and a function that ends the subscription.
// Slow subscribers only ever see the latest state.
func (r *Recorder) Subscribe() (<-chan State, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan State, 1)
	r.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
}

func (r *Recorder) publish(s State) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
