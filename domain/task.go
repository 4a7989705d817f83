package domain

import "time"

// Priority ranks how urgently a task needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// KnownPriority reports whether p is one of the defined priority levels.
func KnownPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a single board item.
type Task struct {
	ID          string         `json:"id"`
	BoardID     string         `json:"boardId"`
	ColumnID    string         `json:"boardColumnId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	AssigneeID  string         `json:"assigneeId,omitempty"`
	Priority    Priority       `json:"priority"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Fields      map[string]any `json:"customFields,omitempty"`
	// Position is the task's zero-based rank within its column. Positions of
	// the live tasks in a column are always {0..n-1} with no gaps.
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// MoveRequest describes a single move or reorder of a task. It is never
// persisted; each request is one invocation of the move engine.
type MoveRequest struct {
	TaskID       string `json:"taskId"`
	FromColumnID string `json:"fromColumnId"`
	ToColumnID   string `json:"toColumnId"`
	Position     int    `json:"position"`
}
