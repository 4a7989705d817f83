package domain

import "github.com/bytedance/sonic"

// Event types emitted by the write path.
const (
	EventTaskCreated   = "task-created"
	EventTaskUpdated   = "task-updated"
	EventTaskMoved     = "task-moved"
	EventTaskDeleted   = "task-deleted"
	EventColumnCreated = "column-created"
	EventColumnUpdated = "column-updated"
	EventColumnDeleted = "column-deleted"
)

// Event notifies downstream read-model consumers of a committed board change.
type Event struct {
	ID       string                 `json:"id"`
	BoardID  string                 `json:"boardId"`
	EntityID string                 `json:"entityId"`
	Type     string                 `json:"type"`
	Data     sonic.NoCopyRawMessage `json:"data,omitempty"`
	Time     int64                  `json:"time"`
}
