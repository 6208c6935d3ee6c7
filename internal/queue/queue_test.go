package queue

import (
	"context"
	"testing"
	"time"

	"github.com/benwilber/tinysse/internal/message"
)

func recvTimeout(t *testing.T, r *Reader) Recv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	recv, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	return recv
}

// TestOrder covers P1: sequence numbers strictly increase between Lagged
// events for a single reader.
func TestOrder(t *testing.T) {
	q := New(16)
	r := q.Subscribe()

	for i := 0; i < 5; i++ {
		q.Publish(&message.Message{Data: "x"})
	}

	var last uint64
	var first = true
	for i := 0; i < 5; i++ {
		recv := recvTimeout(t, r)
		if recv.Kind != RecvMessage {
			t.Fatalf("recv %d: kind = %v, want RecvMessage", i, recv.Kind)
		}
		if !first && recv.Seq <= last {
			t.Fatalf("recv %d: seq %d did not increase from %d", i, recv.Seq, last)
		}
		last = recv.Seq
		first = false
	}
}

// TestNoStall covers P2: a slow subscriber never blocks a fast one, and
// observes Lagged exactly when the backlog exceeds capacity.
func TestNoStall(t *testing.T) {
	q := New(2)
	slow := q.Subscribe()
	fast := q.Subscribe()

	const n = 5

	// The fast subscriber drains each message right after it is published
	// and sees all n messages.
	count := 0
	for count < n {
		q.Publish(&message.Message{Data: "x"})
		recv := recvTimeout(t, fast)
		if recv.Kind != RecvMessage {
			t.Fatalf("fast recv: kind = %v", recv.Kind)
		}
		count++
	}

	// The slow subscriber reads only after the backlog exceeded capacity,
	// so its first Recv must report Lagged.
	recv := recvTimeout(t, slow)
	if recv.Kind != RecvLagged {
		t.Fatalf("slow recv: kind = %v, want RecvLagged", recv.Kind)
	}
	if recv.Count != n-int(q.cap) {
		t.Errorf("slow recv: Count = %d, want %d", recv.Count, n-int(q.cap))
	}

	// After the Lagged report, the slow reader resumes with the latest
	// surviving messages in order.
	remaining := 0
	for {
		r := recvTimeout(t, slow)
		if r.Kind != RecvMessage {
			break
		}
		remaining++
		if remaining == int(q.cap) {
			break
		}
	}
	if remaining != int(q.cap) {
		t.Errorf("slow reader recovered %d messages, want %d", remaining, q.cap)
	}
}

func TestSubscribeAfterPublishSeesNothingPast(t *testing.T) {
	q := New(4)
	for i := 0; i < 5; i++ {
		q.Publish(&message.Message{Data: "x"})
	}
	r := q.Subscribe()

	q.Publish(&message.Message{ID: "new"})
	recv := recvTimeout(t, r)
	if recv.Kind != RecvMessage || recv.Msg.ID != "new" {
		t.Fatalf("recv = %+v, want the message published after Subscribe", recv)
	}
}

func TestCloseWakesReaders(t *testing.T) {
	q := New(4)
	r := q.Subscribe()
	done := make(chan Recv, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		recv, _ := r.Recv(ctx)
		done <- recv
	}()
	q.Close()
	select {
	case recv := <-done:
		if recv.Kind != RecvClosed {
			t.Errorf("Kind = %v, want RecvClosed", recv.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not wake up after Close")
	}
}
