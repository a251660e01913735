package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fragments(parts ...string) Producer {
	return func(ctx context.Context, emit func(string) bool) error {
		for _, p := range parts {
			if !emit(p) {
				return ctx.Err()
			}
		}
		return nil
	}
}

func TestStream_Completed(t *testing.T) {
	s := NewStream(context.Background(), fragments("Ol", "á, ", "tudo bem?"))

	var got []string
	for {
		f, ok := s.Next()
		if !ok {
			break
		}
		got = append(got, f)
	}

	if len(got) != 3 || got[0] != "Ol" || got[2] != "tudo bem?" {
		t.Errorf("fragments = %q", got)
	}
	if s.State() != StreamCompleted {
		t.Errorf("State() = %v, want completed", s.State())
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
}

func TestStream_FailedAfterFragment(t *testing.T) {
	boom := errors.New("permission denied")
	s := NewStream(context.Background(), func(ctx context.Context, emit func(string) bool) error {
		emit("parcial")
		return boom
	})

	text, err := s.Collect()
	if text != "parcial" {
		t.Errorf("Collect() text = %q, want the delivered fragment", text)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Collect() error = %v, want %v", err, boom)
	}
	if s.State() != StreamFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
}

func TestStream_Cancel(t *testing.T) {
	started := make(chan struct{})
	s := NewStream(context.Background(), func(ctx context.Context, emit func(string) bool) error {
		emit("um")
		close(started)
		for emit("mais") {
		}
		return ctx.Err()
	})

	if f, ok := s.Next(); !ok || f != "um" {
		t.Fatalf("Next() = %q, %v", f, ok)
	}
	<-started
	s.Cancel()

	// drain; the producer may have handed over one more fragment
	for {
		if _, ok := s.Next(); !ok {
			break
		}
	}
	if s.State() != StreamCancelled {
		t.Errorf("State() = %v, want cancelled", s.State())
	}
	if !errors.Is(s.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", s.Err())
	}
}

func TestStream_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStream(ctx, fragments("nunca"))
	if _, err := s.Collect(); !errors.Is(err, context.Canceled) {
		t.Errorf("Collect() error = %v, want context.Canceled", err)
	}
	if s.State() != StreamCancelled {
		t.Errorf("State() = %v, want cancelled", s.State())
	}
}

func TestStream_DeadlineIsFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if _, err := s.Collect(); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Collect() error = %v, want deadline exceeded", err)
	}
	if s.State() != StreamFailed {
		t.Errorf("State() = %v, want failed", s.State())
	}
}

func TestFailedStream(t *testing.T) {
	boom := errors.New("no context")
	s := FailedStream(boom)
	if _, ok := s.Next(); ok {
		t.Error("Next() ok = true on a failed stream")
	}
	if s.State() != StreamFailed || !errors.Is(s.Err(), boom) {
		t.Errorf("State() = %v, Err() = %v", s.State(), s.Err())
	}
}

func TestStreamState(t *testing.T) {
	if StreamOpen.Terminal() {
		t.Error("open stream reported terminal")
	}
	for _, st := range []StreamState{StreamCompleted, StreamFailed, StreamCancelled} {
		if !st.Terminal() {
			t.Errorf("%v should be terminal", st)
		}
	}
	if StreamCancelled.String() != "cancelled" {
		t.Errorf("String() = %q", StreamCancelled.String())
	}
}
