package engine

import (
	"context"
	"errors"
	"time"

	"kanban-api/domain"
)

// ErrNotFound is returned by stores when no live row matches a lookup. The
// engine translates it into the entity-specific NotFoundError.
var ErrNotFound = errors.New("not found")

// TaskPatch carries the fields of a task update that were actually specified.
// Nil pointers leave the stored value untouched. Fields, when non-nil, replaces
// the stored custom-field map wholesale; orchestration merges before patching.
type TaskPatch struct {
	Title       *string
	Description *string
	ColumnID    *string
	AssigneeID  *string
	Priority    *domain.Priority
	DueDate     *time.Time
	Tags        *[]string
	Fields      map[string]any
	Position    *int
}

// PositionUpdate is one row of a batched position shift. ColumnID is set only
// when the row also changes columns.
type PositionUpdate struct {
	ID       string
	Position int
	ColumnID string
}

// TaskStore is the persistence collaborator for tasks. Implementations must
// provide read-your-writes consistency within one call chain, and commit a
// BatchUpdatePositions call atomically within a board or not at all.
type TaskStore interface {
	GetByID(ctx context.Context, id string) (domain.Task, error)
	GetByColumnID(ctx context.Context, columnID string) ([]domain.Task, error)
	Create(ctx context.Context, t domain.Task) (domain.Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) (domain.Task, error)
	BatchUpdatePositions(ctx context.Context, boardID string, updates []PositionUpdate) error
	Delete(ctx context.Context, id string) error
}

// ColumnPatch carries the fields of a column update that were specified.
type ColumnPatch struct {
	Name          *string
	Color         *string
	WipLimit      *int
	ClearWipLimit bool
}

// ColumnStore is the persistence collaborator for boards and their columns.
type ColumnStore interface {
	GetColumnByID(ctx context.Context, id string) (domain.Column, error)
	GetBoardByID(ctx context.Context, boardID string, includeColumns bool) (domain.Board, error)
	CreateColumn(ctx context.Context, c domain.Column) (domain.Column, error)
	UpdateColumn(ctx context.Context, id string, patch ColumnPatch) (domain.Column, error)
	DeleteColumn(ctx context.Context, id string) error
}

// FieldStore looks up the custom-field definitions declared for a board.
type FieldStore interface {
	GetFieldsByBoardID(ctx context.Context, boardID string) ([]domain.FieldDefinition, error)
}
