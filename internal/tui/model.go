// Package tui is the live recorder screen shown by `meetnote record`.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"meetnote/internal/audio"
	"meetnote/internal/output"
)

// Recorder is the part of audio.Recorder the screen drives.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (string, error)
	State() audio.State
}

// ErrCancelled is returned by Run when the user discards the recording with ctrl+c.
// The path of the discarded file, if any, is returned alongside it.
var ErrCancelled = errors.New("recording cancelled")

var (
	recDotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

// startWait bounds how long Run waits for a Start that was still in flight when the screen quit.
const startWait = 5 * time.Second

// startLatch is released once the Start call issued by Init has returned.
type startLatch struct {
	once sync.Once
	done chan struct{}
}

func (l *startLatch) release() { l.once.Do(func() { close(l.done) }) }

// Model is the bubbletea model for one recording session.
type Model struct {
	ctx      context.Context
	rec      Recorder
	interval time.Duration
	started  *startLatch

	recording bool
	stopping  bool
	cancelled bool
	duration  int64

	path string
	err  error
}

// New returns a model that starts rec on Init and polls its state every interval.
func New(ctx context.Context, rec Recorder, interval time.Duration) Model {
	if interval <= 0 {
		interval = audio.StateInterval
	}
	return Model{ctx: ctx, rec: rec, interval: interval, started: &startLatch{done: make(chan struct{})}}
}

func (m Model) Init() tea.Cmd {
	return m.startCmd()
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		defer m.started.release()
		if err := m.rec.Start(m.ctx); err != nil {
			return errMsg{Err: err}
		}
		return startedMsg{}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return stateMsg{State: m.rec.State()}
	})
}

func (m Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		path, err := m.rec.Stop()
		return stoppedMsg{Path: path, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		m.recording = true
		return m, m.tickCmd()

	case stateMsg:
		if !m.recording || m.stopping {
			return m, nil
		}
		m.duration = msg.State.DurationMillis
		if !msg.State.Recording {
			// ffmpeg exited on its own; finalize what it wrote.
			m.stopping = true
			return m, m.stopCmd()
		}
		return m, m.tickCmd()

	case stoppedMsg:
		m.recording = false
		m.path, m.err = msg.Path, msg.Err
		return m, tea.Quit

	case errMsg:
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "s", "enter", "q":
			return m.stop()
		case "ctrl+c":
			m.cancelled = true
			return m.stop()
		}
	}
	return m, nil
}

func (m Model) stop() (tea.Model, tea.Cmd) {
	if !m.recording {
		return m, tea.Quit
	}
	if m.stopping {
		return m, nil
	}
	m.stopping = true
	return m, m.stopCmd()
}

func (m Model) View() string {
	if m.err != nil {
		return errStyle.Render("Recording failed: "+m.err.Error()) + "\n"
	}
	if !m.recording && m.path == "" {
		return dimStyle.Render("Starting recorder…") + "\n"
	}
	if m.path != "" {
		return fmt.Sprintf("Saved %s (%s)\n", m.path, output.FormatDuration(m.duration))
	}

	var b strings.Builder
	b.WriteString(output.RecordingLine(recDotStyle, m.duration))
	b.WriteString("\n")
	if m.stopping {
		b.WriteString(dimStyle.Render("Finishing recording…"))
	} else {
		b.WriteString(keyStyle.Render("s") + dimStyle.Render(" stop  ") + keyStyle.Render("ctrl+c") + dimStyle.Render(" discard"))
	}
	b.WriteString("\n")
	return b.String()
}

// Result is the outcome of a finished session.
func (m Model) Result() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.cancelled {
		return m.path, ErrCancelled
	}
	return m.path, nil
}

// Run shows the recorder screen until the user stops it and returns the recording path.
func Run(ctx context.Context, rec Recorder, opts ...tea.ProgramOption) (string, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(New(ctx, rec, audio.StateInterval), opts...).Run()
	if err != nil {
		if path, stopErr := rec.Stop(); stopErr == nil && path != "" {
			return "", fmt.Errorf("recorder screen: %w (recording kept at %s)", err, path)
		}
		return "", fmt.Errorf("recorder screen: %w", err)
	}
	return settle(rec, final.(Model), startWait)
}

// settle turns the final screen state into a result. A key press can quit the screen before
// Start returns; ffmpeg may then already be running and is stopped here. A session that ends
// without a file reports audio.ErrNoRecording.
func settle(rec Recorder, m Model, wait time.Duration) (string, error) {
	if m.err != nil || m.path != "" {
		return m.Result()
	}

	select {
	case <-m.started.done:
	case <-time.After(wait):
	}
	if !rec.State().Recording {
		if m.cancelled {
			return "", ErrCancelled
		}
		return "", audio.ErrNoRecording
	}

	path, err := rec.Stop()
	switch {
	case m.cancelled:
		return path, ErrCancelled
	case err != nil:
		return "", err
	case path == "":
		return "", audio.ErrNoRecording
	}
	return path, nil
}
