package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"kanban-api/domain"
)

type blockingSink struct {
	mu      sync.Mutex
	events  []domain.Event
	gate    chan struct{}
	blocked bool
}

func (s *blockingSink) EnqueueEvents(ctx context.Context, boardID string, events []domain.Event) error {
	s.mu.Lock()
	block := s.blocked
	s.blocked = false
	s.mu.Unlock()
	if block {
		<-s.gate
	}
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
	return nil
}

func (s *blockingSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestPublisherDeliversBufferedEvents(t *testing.T) {
	sink := &captureSink{}
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(sink, logger)

	for i := 0; i < 5; i++ {
		pub.Publish("board-1", domain.Event{ID: "e", BoardID: "board-1", Type: domain.EventTaskMoved})
	}
	pub.Close()

	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
}

func TestPublisherEmptyBatchIsNoop(t *testing.T) {
	sink := &captureSink{err: errors.New("should never be called")}
	logger, hook := test.NewNullLogger()
	pub := NewPublisher(sink, logger)

	pub.Publish("board-1")
	pub.Close()

	// A delivery attempt against the failing sink would log at error level.
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.ErrorLevel {
			t.Fatalf("empty publish reached the sink: %s", entry.Message)
		}
	}
}

func TestPublisherSaturationFallsBackInline(t *testing.T) {
	t.Setenv("EVENT_WORKERS", "1")
	t.Setenv("EVENT_BUFFER", "1")
	t.Setenv("EVENT_HANDOFF_TIMEOUT", "1ms")

	sink := &blockingSink{gate: make(chan struct{}), blocked: true}
	logger, hook := test.NewNullLogger()
	pub := NewPublisher(sink, logger)

	// First job parks the only worker on the gate, second fills the buffer,
	// third must be delivered inline by the calling goroutine.
	pub.Publish("board-1", domain.Event{ID: "e1"})
	deadline := time.Now().Add(time.Second)
	for {
		sink.mu.Lock()
		parked := !sink.blocked
		sink.mu.Unlock()
		if parked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first job")
		}
		time.Sleep(time.Millisecond)
	}
	pub.Publish("board-1", domain.Event{ID: "e2"})
	pub.Publish("board-1", domain.Event{ID: "e3"})

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "event buffer saturated; publishing inline" {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a saturation warning")
	}

	close(sink.gate)
	pub.Close()

	if got := len(sink.Events()); got != 3 {
		t.Fatalf("expected all 3 events delivered, got %d", got)
	}
}

func TestPublisherLogsSinkFailures(t *testing.T) {
	sink := &captureSink{err: errors.New("queue unavailable")}
	logger, hook := test.NewNullLogger()
	pub := NewPublisher(sink, logger)

	pub.Publish("board-1", domain.Event{ID: "e1"})
	pub.Close()

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Data["board"] == "board-1" && entry.Data["count"] == 1 {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("expected a publish failure entry, got %d entries", len(hook.AllEntries()))
	}
}

func TestPublisherCloseIsIdempotent(t *testing.T) {
	sink := &captureSink{}
	logger, _ := test.NewNullLogger()
	pub := NewPublisher(sink, logger)
	pub.Close()
	pub.Close()
}
