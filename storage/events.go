package storage

import (
	"context"
	"encoding/json"

	"kanban-api/domain"
)

// EnqueueEvents sends the given board events to the event queue.
func (s *Store) EnqueueEvents(ctx context.Context, boardID string, events []domain.Event) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := s.eventQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}
