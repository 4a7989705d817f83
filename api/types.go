package api

import (
	"context"

	"kanban-api/domain"
	"kanban-api/engine"
)

// Mover moves, reorders and deletes tasks while holding the position and WIP
// invariants.
type Mover interface {
	Move(ctx context.Context, req domain.MoveRequest) (domain.Task, error)
	Delete(ctx context.Context, taskID string) (domain.Task, error)
}

// Tasks orchestrates validated task creation and update.
type Tasks interface {
	Create(ctx context.Context, in engine.CreateTaskInput) (domain.Task, error)
	Update(ctx context.Context, id string, in engine.UpdateTaskInput) (domain.Task, error)
}

// TaskReader lists the live tasks of a column ordered by position.
type TaskReader interface {
	GetByColumnID(ctx context.Context, columnID string) ([]domain.Task, error)
}

// Boards reads and mutates boards and their columns.
type Boards interface {
	GetBoardByID(ctx context.Context, boardID string, includeColumns bool) (domain.Board, error)
	GetColumnByID(ctx context.Context, id string) (domain.Column, error)
	CreateColumn(ctx context.Context, c domain.Column) (domain.Column, error)
	UpdateColumn(ctx context.Context, id string, patch engine.ColumnPatch) (domain.Column, error)
	DeleteColumn(ctx context.Context, id string) error
}

// EventSink accepts committed board events for downstream consumers.
type EventSink interface {
	EnqueueEvents(ctx context.Context, boardID string, events []domain.Event) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents reprocessing of duplicate move requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when processing fails.
	Remove(ctx context.Context, userID, key string) error
}
