// Package export renders meetings to files: a CSV of the list and a PDF of one meeting.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"meetnote/internal/model"
)

// CSV writes meetings with a header row. An empty list still produces the header.
func CSV(w io.Writer, meetings []model.Meeting) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	var err error
	if len(meetings) == 0 {
		err = enc.EncodeHeader(model.Meeting{})
	} else {
		err = enc.Encode(meetings)
	}
	if err != nil {
		return fmt.Errorf("encode meetings: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
