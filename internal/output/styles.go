package output

import (
	"github.com/charmbracelet/lipgloss"

	"meetnote/internal/model"
)

var (
	colorRed    = lipgloss.Color("#FF0000")
	colorGreen  = lipgloss.Color("#00FF00")
	colorYellow = lipgloss.Color("#FFFF00")
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGray   = lipgloss.Color("#666666")
)

// styles are bound to one renderer so that colour support follows the writer, not stdout.
type styles struct {
	title     lipgloss.Style
	heading   lipgloss.Style
	dim       lipgloss.Style
	errorText lipgloss.Style
	warning   lipgloss.Style
	success   lipgloss.Style
	recDot    lipgloss.Style
	status    map[model.Status]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:     r.NewStyle().Bold(true).Foreground(colorCyan),
		heading:   r.NewStyle().Bold(true),
		dim:       r.NewStyle().Foreground(colorGray),
		errorText: r.NewStyle().Foreground(colorRed).Bold(true),
		warning:   r.NewStyle().Foreground(colorYellow),
		success:   r.NewStyle().Foreground(colorGreen),
		recDot:    r.NewStyle().Foreground(colorRed).Bold(true),
		status: map[model.Status]lipgloss.Style{
			model.StatusPending:    r.NewStyle().Foreground(colorYellow),
			model.StatusProcessing: r.NewStyle().Foreground(colorCyan),
			model.StatusReady:      r.NewStyle().Foreground(colorGreen),
			model.StatusError:      r.NewStyle().Foreground(colorRed),
		},
	}
}

func (s styles) statusStyle(st model.Status) lipgloss.Style {
	if style, ok := s.status[st]; ok {
		return style
	}
	return s.dim
}
