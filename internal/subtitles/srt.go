package subtitles

import (
	"fmt"
	"os"
	"strings"
)

// Segment is one timed line of transcribed speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// WriteSRT writes the segments as a SubRip file at path: 1-based index,
// start --> end timestamps, text, blank separator.
func WriteSRT(segments []Segment, path string) error {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(seg.Start), FormatTimestamp(seg.End))
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(seg.Text))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write srt %s: %w", path, err)
	}
	return nil
}

// FormatTimestamp renders seconds as the SubRip HH:MM:SS,mmm form.
func FormatTimestamp(seconds float64) string {
	total := int64(seconds * 1000)
	if total < 0 {
		total = 0
	}
	hours := total / (3600 * 1000)
	minutes := (total % (3600 * 1000)) / (60 * 1000)
	secs := (total % (60 * 1000)) / 1000
	millis := total % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
