package ledger

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// clockLayouts are the accepted wall-clock formats, tried in order.
var clockLayouts = []string{"15:04", "15:04:05"}

// parseDate validates a YYYY-MM-DD calendar day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InputError{Field: "date", Reason: "required"}
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &InputError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return d, nil
}

// parseClock converts a wall-clock value into seconds since midnight and
// its normalized text (HH:MM, or HH:MM:SS when seconds are present).
func parseClock(field, s string) (int, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", &InputError{Field: field, Reason: "required"}
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
		return secs, formatClock(secs), nil
	}
	return 0, "", &InputError{Field: field, Reason: "must be HH:MM"}
}

func formatClock(secs int) string {
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// share any instant.  Touching endpoints do not overlap.
func overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// clockSeconds parses an already-normalized stored clock value.  Stored
// values were validated on the way in, so a parse failure yields -1 and
// the record is skipped by callers.
func clockSeconds(s string) int {
	secs, _, err := parseClock("time", s)
	if err != nil {
		return -1
	}
	return secs
}
