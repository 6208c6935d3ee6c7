// Package message defines the publishable unit of Tiny SSE and its rendered
// wire form.
package message

import (
	"errors"
	"strings"
)

// ErrEmpty is returned when a Message has none of id, event, data, or
// comment set.
var ErrEmpty = errors.New("message: at least one of id, event, data, comment must be set")

// Message is the publishable unit. All fields are optional, but at least one
// must be non-empty or the message is invalid.
type Message struct {
	ID      string
	Event   string
	Data    string
	Comment []string
}

// Clone returns a shallow, independent copy safe for a single subscriber to
// mutate inside the message hook without affecting other subscribers or the
// shared published value.
func (m Message) Clone() Message {
	out := m
	if len(m.Comment) > 0 {
		out.Comment = append([]string(nil), m.Comment...)
	}
	return out
}

// Empty reports whether none of the message fields are set.
func (m Message) Empty() bool {
	return m.ID == "" && m.Event == "" && m.Data == "" && len(m.Comment) == 0
}

// Validate returns ErrEmpty if the message has no content.
func (m Message) Validate() error {
	if m.Empty() {
		return ErrEmpty
	}
	return nil
}

// Frame renders the SSE wire form of the message: comment lines, then id,
// then event, then one or more data lines, terminated by a blank line.
// A data value containing embedded newlines is split into multiple data:
// lines per spec.
func (m Message) Frame() string {
	var b strings.Builder
	for _, c := range m.Comment {
		b.WriteString(": ")
		b.WriteString(c)
		b.WriteByte('\n')
	}
	if m.ID != "" {
		b.WriteString("id: ")
		b.WriteString(m.ID)
		b.WriteByte('\n')
	}
	if m.Event != "" {
		b.WriteString("event: ")
		b.WriteString(m.Event)
		b.WriteByte('\n')
	}
	if m.Data != "" {
		for _, line := range strings.Split(m.Data, "\n") {
			b.WriteString("data: ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// CommentFrame renders a single comment-only frame, used for the hello
// frame and keep-alives.
func CommentFrame(text string) string {
	var b strings.Builder
	b.WriteString(": ")
	b.WriteString(text)
	b.WriteString("\n\n")
	return b.String()
}

// RetryFrame renders a bare "retry:" frame, used when a session times out.
func RetryFrame(ms int64) string {
	var b strings.Builder
	b.WriteString("retry: ")
	b.WriteString(itoa(ms))
	b.WriteString("\n\n")
	return b.String()
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ParseFrame reconstructs a Message from a rendered frame, for round-trip
// testing (property P3). It expects a single frame: zero or more lines
// terminated by a final blank line, with no leading/trailing frame
// separators beyond the terminating blank line.
func ParseFrame(frame string) (Message, error) {
	frame = strings.TrimSuffix(frame, "\n\n")
	frame = strings.TrimSuffix(frame, "\n")
	var m Message
	var dataLines []string
	if frame == "" {
		return m, nil
	}
	for _, line := range strings.Split(frame, "\n") {
		switch {
		case strings.HasPrefix(line, ": "):
			m.Comment = append(m.Comment, strings.TrimPrefix(line, ": "))
		case line == ":":
			m.Comment = append(m.Comment, "")
		case strings.HasPrefix(line, "id: "):
			m.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			m.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "data:":
			dataLines = append(dataLines, "")
		}
	}
	if dataLines != nil {
		m.Data = strings.Join(dataLines, "\n")
	}
	return m, nil
}
