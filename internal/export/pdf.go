package export

import (
	"fmt"
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"meetnote/internal/model"
)

var (
	titleProps   = props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}
	headingProps = props.Text{Size: 12, Style: fontstyle.Bold, Top: 4}
	bodyProps    = props.Text{Size: 10, Top: 2}
	mutedProps   = props.Text{Size: 9, Style: fontstyle.Italic, Top: 1}
)

// PDF renders one meeting: date, status, summary and transcript.
func PDF(w io.Writer, m *model.Meeting, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	doc := maroto.New(config.NewBuilder().Build())
	doc.AddRows(text.NewRow(12, "Meeting", titleProps))
	doc.AddAutoRow(text.NewCol(12, m.CreatedAt.In(loc).Format("Mon, 2 Jan 2006 15:04"), mutedProps))
	doc.AddAutoRow(text.NewCol(12, "Status: "+m.Status.Label(), mutedProps))

	doc.AddAutoRow(text.NewCol(12, "Summary", headingProps))
	doc.AddAutoRow(text.NewCol(12, orPlaceholder(m.SummaryText(), m.StatusHint()), bodyProps))

	doc.AddAutoRow(text.NewCol(12, "Transcript", headingProps))
	doc.AddAutoRow(text.NewCol(12, orPlaceholder(m.TranscriptText(), m.StatusHint()), bodyProps))

	out, err := doc.Generate()
	if err != nil {
		return fmt.Errorf("generate pdf: %w", err)
	}
	if _, err := w.Write(out.GetBytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func orPlaceholder(s, hint string) string {
	if s != "" {
		return s
	}
	if hint != "" {
		return hint
	}
	return "-"
}
