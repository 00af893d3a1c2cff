package output

import (
	"strings"
	"time"
)

// Stream identifies which pipe of the child process a line arrived on.
type Stream string

// Output streams.
const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Line is a single captured line of child output. Immutable once
// recorded: the buffer, sinks, and the oracle client share Line values
// by copy and never modify them.
type Line struct {
	Time       time.Time `json:"time"`
	Stream     Stream    `json:"stream"`
	Text       string    `json:"text"`
	Generation uint64    `json:"generation"`
}

// Render joins captured lines into the text block presented to the
// oracle. Stderr lines are prefixed so the model can tell diagnostic
// output from regular output; the two pipes are otherwise interleaved
// in arrival order.
func Render(lines []Line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if l.Stream == StreamStderr {
			b.WriteString("[stderr] ")
		}
		b.WriteString(l.Text)
	}
	return b.String()
}
