// Package output renders CLI results for humans.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"meetnote/internal/model"
)

const (
	emptyState   = "No meetings yet. Record one with `meetnote record`."
	previewWidth = 60
)

type Formatter struct {
	w   io.Writer
	loc *time.Location
	st  styles
}

// NewFormatter writes to w, printing times in loc (local time when nil).
func NewFormatter(w io.Writer, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{w: w, loc: loc, st: newStyles(lipgloss.NewRenderer(w))}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "%s %s\n", f.st.errorText.Render("✗"), msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "%s %s\n", f.st.dim.Render("•"), msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "%s %s\n", f.st.success.Render("✓"), msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "%s %s\n", f.st.warning.Render("!"), msg)
}

// Uploaded reports the result of the upload flow. warning is empty unless processing
// could not be started.
func (f *Formatter) Uploaded(meetingID, warning string) {
	f.Success("Uploaded meeting " + meetingID)
	if warning != "" {
		f.Warning("Processing may not have started: " + warning)
		f.Info("Run `meetnote retrigger " + meetingID + "` to try again.")
	}
}

// MeetingList prints one line per meeting, or the empty state.
func (f *Formatter) MeetingList(items []model.Meeting) {
	if len(items) == 0 {
		fmt.Fprintln(f.w, f.st.dim.Render(emptyState))
		return
	}

	fmt.Fprintln(f.w, f.st.title.Render("Meetings"))
	for _, m := range items {
		status := f.st.statusStyle(m.Status).Render(fmt.Sprintf("%-13s", m.Status.Label()))
		line := fmt.Sprintf("  %s  %s  %s", f.formatTime(m.CreatedAt), status, f.st.dim.Render(m.ID))
		if preview := Preview(m.SummaryText(), previewWidth); preview != "" {
			line += "\n    " + preview
		}
		fmt.Fprintln(f.w, line)
	}
}

// MeetingDetail prints everything known about one meeting.
func (f *Formatter) MeetingDetail(m *model.Meeting) {
	fmt.Fprintln(f.w, f.st.title.Render("Meeting "+m.ID))
	fmt.Fprintf(f.w, "%s %s\n", f.st.dim.Render("Date:  "), f.formatTime(m.CreatedAt))
	fmt.Fprintf(f.w, "%s %s\n", f.st.dim.Render("Status:"), f.st.statusStyle(m.Status).Render(m.Status.Label()))

	if hint := m.StatusHint(); hint != "" {
		fmt.Fprintf(f.w, "\n%s\n", f.st.dim.Render(hint))
	}
	if s := m.SummaryText(); s != "" {
		fmt.Fprintf(f.w, "\n%s\n%s\n", f.st.heading.Render("Summary"), s)
	}
	if t := m.TranscriptText(); t != "" {
		fmt.Fprintf(f.w, "\n%s\n%s\n", f.st.heading.Render("Transcript"), t)
	}
	if m.Status == model.StatusError {
		fmt.Fprintf(f.w, "\n%s\n", f.st.errorText.Render("Processing failed. Run `meetnote retrigger "+m.ID+"` to try again."))
	}
}

// Check prints one prerequisite line for doctor.
func (f *Formatter) Check(name string, ok bool, detail string) {
	mark := f.st.success.Render("✓")
	if !ok {
		mark = f.st.errorText.Render("✗")
	}
	fmt.Fprintf(f.w, "  %s %s: %s\n", mark, name, detail)
}

// Recording renders the live recorder line: red dot and m:ss.
func (f *Formatter) Recording(durationMillis int64) string {
	return RecordingLine(f.st.recDot, durationMillis)
}

// RecordingLine renders the live recorder line with the given dot style.
func RecordingLine(dot lipgloss.Style, durationMillis int64) string {
	return dot.Render("●") + " REC " + FormatDuration(durationMillis)
}

func (f *Formatter) formatTime(t time.Time) string {
	return t.In(f.loc).Format("Jan 2, 2006 15:04")
}

// FormatDuration renders milliseconds as m:ss; minutes keep growing past an hour.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Preview is the first line of s, cut to width runes with an ellipsis.
func Preview(s string, width int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
