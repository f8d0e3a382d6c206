package ticket

import (
	"fmt"
	"sort"
	"strings"
)

// TranscriptTimeFormat is the timestamp layout of transcript lines.
const TranscriptTimeFormat = "2006-01-02 15:04:05"

// FormatTranscript renders messages oldest first, one per line:
// "[YYYY-MM-DD HH:MM:SS] author: text". Timestamps are UTC.
func FormatTranscript(msgs []Message) string {
	sorted := make([]Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var b strings.Builder
	for _, m := range sorted {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.UTC().Format(TranscriptTimeFormat), m.Author, m.Content)
	}
	return b.String()
}
