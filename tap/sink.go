package tap

import (
	"io"
	"strings"
)

// Sink receives report output one line at a time, without line terminators.
type Sink func(line string)

// WriterSink writes each line to w followed by a newline. Write errors are
// dropped; the report has no way to act on them.
func WriterSink(w io.Writer) Sink {
	return func(line string) {
		_, _ = io.WriteString(w, line+"\n")
	}
}

// Collect appends every line to lines.
func Collect(lines *[]string) Sink {
	return func(line string) {
		*lines = append(*lines, line)
	}
}

// Lines adapts a consumer of text chunks so that each call carries exactly
// one line.
func Lines(chunks func(string)) Sink {
	return func(text string) {
		for _, line := range splitLines(text) {
			chunks(line)
		}
	}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
