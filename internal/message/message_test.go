package message

import "testing"

func TestValidateEmpty(t *testing.T) {
	var m Message
	if err := m.Validate(); err != ErrEmpty {
		t.Fatalf("Validate() = %v, want ErrEmpty", err)
	}
}

func TestValidateAcceptsAnySingleField(t *testing.T) {
	cases := []Message{
		{ID: "a"},
		{Event: "update"},
		{Data: "hello"},
		{Comment: []string{"ok"}},
	}
	for _, m := range cases {
		if err := m.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", m, err)
		}
	}
}

func TestFrameOrdering(t *testing.T) {
	m := Message{
		ID:      "42",
		Event:   "update",
		Data:    "a\nb",
		Comment: []string{"hint"},
	}
	got := m.Frame()
	want := ": hint\nid: 42\nevent: update\ndata: a\ndata: b\n\n"
	if got != want {
		t.Errorf("Frame() = %q, want %q", got, want)
	}
}

func TestFrameMultilineData(t *testing.T) {
	m := Message{Data: "a\nb"}
	got := m.Frame()
	want := "data: a\ndata: b\n\n"
	if got != want {
		t.Errorf("Frame() = %q, want %q", got, want)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	cases := []Message{
		{ID: "1", Event: "e", Data: "hello"},
		{Data: "a\nb\nc"},
		{Comment: []string{"one", "two"}},
		{ID: "x", Comment: []string{"c1"}, Event: "ev", Data: "d1\nd2"},
	}
	for _, m := range cases {
		frame := m.Frame()
		got, err := ParseFrame(frame)
		if err != nil {
			t.Fatalf("ParseFrame(%q) error: %v", frame, err)
		}
		if got.ID != m.ID || got.Event != m.Event || got.Data != m.Data {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, m)
		}
		if len(got.Comment) != len(m.Comment) {
			t.Errorf("round trip comment mismatch: got %v, want %v", got.Comment, m.Comment)
		}
		for i := range m.Comment {
			if got.Comment[i] != m.Comment[i] {
				t.Errorf("comment[%d]: got %q, want %q", i, got.Comment[i], m.Comment[i])
			}
		}
	}
}

func TestCommentFrame(t *testing.T) {
	if got := CommentFrame("ok"); got != ": ok\n\n" {
		t.Errorf("CommentFrame(ok) = %q", got)
	}
}

func TestRetryFrame(t *testing.T) {
	if got := RetryFrame(1500); got != "retry: 1500\n\n" {
		t.Errorf("RetryFrame(1500) = %q", got)
	}
}
