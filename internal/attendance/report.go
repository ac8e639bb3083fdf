package attendance

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/foxseedlab/attendance/internal/repository"
)

var participantCSVHeader = []string{"user_id", "segments", "total_seconds", "first_join", "last_seen"}

func BuildParticipantsCSV(rows []repository.ParticipantSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(participantCSVHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.UserID,
			strconv.FormatInt(r.Segments, 10),
			strconv.FormatInt(r.TotalSeconds, 10),
			FormatInstant(r.FirstJoin),
			FormatInstant(r.LastSeen),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// FormatInstant renders t as RFC 3339 in UTC with any fractional seconds,
// or "" for nil.
func FormatInstant(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
