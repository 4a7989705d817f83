package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

type eventJob struct {
	boardID string
	events  []domain.Event
}

// Publisher delivers committed board events to an EventSink from a bounded
// worker pool. Events are advisory read-model notifications: publish failures
// are logged and never surfaced to the request that produced them.
type Publisher struct {
	sink           EventSink
	logger         *log.Logger
	jobs           chan eventJob
	wg             sync.WaitGroup
	publishTimeout time.Duration
	handoffTimeout time.Duration
	closeOnce      sync.Once
}

// NewPublisher starts a publisher pool. Worker count, buffer size and
// timeouts are tunable through EVENT_WORKERS, EVENT_BUFFER,
// EVENT_PUBLISH_TIMEOUT and EVENT_HANDOFF_TIMEOUT.
func NewPublisher(sink EventSink, logger *log.Logger) *Publisher {
	if sink == nil {
		panic("event sink is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	p := &Publisher{
		sink:           sink,
		logger:         logger,
		jobs:           make(chan eventJob, envInt("EVENT_BUFFER", 1024)),
		publishTimeout: envDur("EVENT_PUBLISH_TIMEOUT", 30*time.Second),
		handoffTimeout: envDur("EVENT_HANDOFF_TIMEOUT", 15*time.Millisecond),
	}
	workers := envInt("EVENT_WORKERS", 8)
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Infof("event publisher started, workers: %d, buffer: %d", workers, cap(p.jobs))
	return p
}

func (p *Publisher) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.deliver(j, id)
	}
}

func (p *Publisher) deliver(j eventJob, worker int) {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	err := p.sink.EnqueueEvents(ctx, j.boardID, j.events)
	cancel()
	if err != nil {
		p.logger.WithFields(log.Fields{
			"board":  j.boardID,
			"count":  len(j.events),
			"worker": worker,
		}).Errorf("event publish failed: %v", err)
	}
}

// Publish hands events to the pool, waiting at most the handoff timeout for
// buffer space. When the pool is saturated the events are published inline so
// none are dropped.
func (p *Publisher) Publish(boardID string, events ...domain.Event) {
	if len(events) == 0 {
		return
	}
	job := eventJob{boardID: boardID, events: events}

	select {
	case p.jobs <- job:
		return
	default:
	}

	if p.handoffTimeout > 0 {
		timer := time.NewTimer(p.handoffTimeout)
		select {
		case p.jobs <- job:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	p.logger.Warn("event buffer saturated; publishing inline")
	p.deliver(job, -1)
}

// Close stops the workers after draining buffered jobs.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}
