package internal

import (
	"context"
	"errors"
	"sync"
)

// StreamState is the lifecycle position of a Stream
type StreamState int

const (
	StreamOpen StreamState = iota
	StreamCompleted
	StreamFailed
	StreamCancelled
)

func (s StreamState) String() string {
	switch s {
	case StreamOpen:
		return "open"
	case StreamCompleted:
		return "completed"
	case StreamFailed:
		return "failed"
	case StreamCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no more fragments will follow
func (s StreamState) Terminal() bool {
	return s != StreamOpen
}

// Producer feeds a Stream. emit returns false once the stream has been
// cancelled; the producer should return promptly after that.
type Producer func(ctx context.Context, emit func(fragment string) bool) error

// Stream is a finite, non-restartable sequence of response fragments.
// It ends in exactly one of StreamCompleted, StreamFailed or StreamCancelled.
type Stream struct {
	ctx       context.Context
	cancel    context.CancelFunc
	fragments chan string

	mu    sync.Mutex
	state StreamState
	err   error
}

// NewStream starts produce in its own goroutine. Fragments are handed over one
// at a time; the producer blocks until the consumer calls Next.
func NewStream(ctx context.Context, produce Producer) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ctx:       ctx,
		cancel:    cancel,
		fragments: make(chan string),
	}
	go s.run(produce)
	return s
}

// FailedStream returns a stream that has already failed with err
func FailedStream(err error) *Stream {
	return NewStream(context.Background(), func(context.Context, func(string) bool) error {
		return err
	})
}

func (s *Stream) run(produce Producer) {
	err := produce(s.ctx, s.emit)
	s.finish(err)
	close(s.fragments)
	s.cancel()
}

func (s *Stream) emit(fragment string) bool {
	select {
	case s.fragments <- fragment:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Stream) finish(err error) {
	if err == nil {
		err = s.ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.state = StreamCompleted
	case errors.Is(err, context.Canceled):
		s.state = StreamCancelled
		s.err = err
	default:
		s.state = StreamFailed
		s.err = err
	}
}

// Next blocks for the next fragment. It returns false once the stream has
// reached a terminal state.
func (s *Stream) Next() (string, bool) {
	fragment, ok := <-s.fragments
	return fragment, ok
}

// State returns the current state. It is terminal once Next has returned false.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure or cancellation cause, nil when completed
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel stops the stream. Pending and future Next calls drain to the
// cancelled terminal state.
func (s *Stream) Cancel() {
	s.cancel()
}

// Collect drains the stream and returns the concatenated text
func (s *Stream) Collect() (string, error) {
	var text []byte
	for {
		fragment, ok := s.Next()
		if !ok {
			break
		}
		text = append(text, fragment...)
	}
	if s.State() == StreamCompleted {
		return string(text), nil
	}
	return string(text), s.Err()
}
