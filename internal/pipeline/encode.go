package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"
	"github.com/tartampluch/go-tempo/internal/config"
)

// CSV header columns.
const (
	csvColTime  = "time"
	csvColValue = "value"
)

// Encode writes the timeline in the given machine-readable format (json or csv).
func Encode(w io.Writer, format string, tl Timeline) error {
	switch format {
	case config.FormatJSON:
		return EncodeJSON(w, tl)
	case config.FormatCSV:
		return EncodeCSV(w, tl)
	default:
		return fmt.Errorf("%s: %q", config.ErrUnknownFormat, format)
	}
}

// EncodeJSON writes the timeline as a single JSON document.
func EncodeJSON(w io.Writer, tl Timeline) error {
	if err := json.NewEncoder(w).Encode(tl); err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncode, err)
	}
	return nil
}

// EncodeCSV writes one "time,value" row per sample after a header row.
func EncodeCSV(w io.Writer, tl Timeline) error {
	cw := csv.NewWriter(w)

	rows := lo.Map(tl.Samples, func(s Sample, _ int) []string {
		return []string{formatFloat(s.Time), formatFloat(s.Value)}
	})
	rows = append([][]string{{csvColTime, csvColValue}}, rows...)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("%s: %w", config.ErrEncode, err)
	}
	return nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
