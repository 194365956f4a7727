package output

import (
	"strings"

	"github.com/acarl005/stripansi"
)

// cleanMessages strips terminal escape sequences that test bodies may print
// so they do not end up inside machine readable reports.
func cleanMessages(msgs []string) []string {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = stripansi.Strip(m)
	}
	return out
}

func cleanJoined(msgs []string) string {
	return strings.Join(cleanMessages(msgs), "\n")
}
