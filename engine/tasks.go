package engine

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"kanban-api/domain"
)

const maxTitleLength = 255

// TaskService orchestrates task creation and update: core-attribute
// validation, custom-field merge and validation, position assignment, and
// persistence, in that order. Persistence is never touched before validation
// passes.
type TaskService struct {
	tasks   TaskStore
	columns ColumnStore
	fields  *FieldEngine
}

// NewTaskService creates a TaskService over the given collaborators.
func NewTaskService(tasks TaskStore, columns ColumnStore, fields *FieldEngine) *TaskService {
	return &TaskService{tasks: tasks, columns: columns, fields: fields}
}

// CreateTaskInput carries the caller-supplied attributes of a new task.
// Priority defaults to medium; DueDate, when set, must parse as a date.
// Position, when nil, defaults to the target column's current occupancy; an
// explicit position inserts before the tasks already there.
type CreateTaskInput struct {
	ColumnID    string
	Title       string
	Description string
	AssigneeID  string
	Priority    string
	DueDate     string
	Tags        []string
	Fields      map[string]any
	Position    *int
}

// UpdateTaskInput carries a partial task patch. Nil pointers leave the stored
// attribute untouched. Fields, when non-nil, is merged onto the stored values;
// an explicit null removes a key from the merged state.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	AssigneeID  *string
	Priority    *string
	DueDate     *string
	Tags        *[]string
	Fields      map[string]any
}

// Create validates and persists a new task at the tail of its column. An
// explicit position inserts the task there instead, shifting the tasks at and
// after it down by one; positions past the tail are clamped to it. The target
// column's WIP limit admits or rejects the create before anything is written.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return domain.Task{}, ValidationError{Field: "title", Reason: "must be at most 255 characters"}
	}
	priority := domain.Priority(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.KnownPriority(priority) {
		return domain.Task{}, ValidationError{Field: "priority", Reason: "must be one of low, medium, high, urgent"}
	}
	var dueDate *time.Time
	if strings.TrimSpace(in.DueDate) != "" {
		d, err := domain.ParseDate(strings.TrimSpace(in.DueDate))
		if err != nil {
			return domain.Task{}, ValidationError{Field: "due_date", Reason: err.Error()}
		}
		dueDate = &d
	}
	if in.Position != nil && *in.Position < 0 {
		return domain.Task{}, ValidationError{Field: "position", Reason: "must not be negative"}
	}

	column, err := s.columns.GetColumnByID(ctx, in.ColumnID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Task{}, NotFoundError{Entity: "column", ID: in.ColumnID}
		}
		return domain.Task{}, &StorageError{Op: "load column", Err: err}
	}

	existing, err := s.tasks.GetByColumnID(ctx, column.ID)
	if err != nil {
		return domain.Task{}, &StorageError{Op: "load column tasks", Err: err}
	}
	if column.WipLimit != nil && len(existing)+1 > *column.WipLimit {
		return domain.Task{}, WipLimitError{ColumnID: column.ID, ColumnName: column.Name, Limit: *column.WipLimit}
	}

	// Nothing stored yet, so the candidate map is already the final state.
	if err := s.fields.ValidateTaskFields(ctx, column.BoardID, in.Fields); err != nil {
		return domain.Task{}, err
	}

	// An explicit position past the tail would leave a hole in the sequence.
	position := len(existing)
	var shifts []PositionUpdate
	if in.Position != nil && *in.Position < len(existing) {
		position = *in.Position
		for _, t := range existing {
			if t.Position >= position {
				shifts = append(shifts, PositionUpdate{ID: t.ID, Position: t.Position + 1})
			}
		}
	}

	now := time.Now().UTC()
	task := domain.Task{
		ID:          uuid.NewString(),
		BoardID:     column.BoardID,
		ColumnID:    column.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		AssigneeID:  strings.TrimSpace(in.AssigneeID),
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        in.Tags,
		Fields:      in.Fields,
		Position:    position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.tasks.Create(ctx, task)
	if err != nil {
		return domain.Task{}, &StorageError{Op: "create task", Err: err}
	}
	if len(shifts) > 0 {
		if err := s.tasks.BatchUpdatePositions(ctx, column.BoardID, shifts); err != nil {
			return domain.Task{}, &PositionUpdateError{Err: err}
		}
	}
	return created, nil
}

// Update validates and persists a partial task patch. Custom-field validation
// runs against the merged final state, not the raw patch, so omitting a field
// preserves its stored value and nulling it out unsets it.
func (s *TaskService) Update(ctx context.Context, id string, in UpdateTaskInput) (domain.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Task{}, ErrInvalidIdentifier
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Task{}, NotFoundError{Entity: "task", ID: id}
		}
		return domain.Task{}, &StorageError{Op: "load task", Err: err}
	}

	var patch TaskPatch
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return domain.Task{}, ValidationError{Field: "title", Reason: "must be at most 255 characters"}
		}
		patch.Title = &title
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		patch.Description = &desc
	}
	if in.AssigneeID != nil {
		assignee := strings.TrimSpace(*in.AssigneeID)
		patch.AssigneeID = &assignee
	}
	if in.Priority != nil {
		priority := domain.Priority(strings.TrimSpace(*in.Priority))
		if !domain.KnownPriority(priority) {
			return domain.Task{}, ValidationError{Field: "priority", Reason: "must be one of low, medium, high, urgent"}
		}
		patch.Priority = &priority
	}
	if in.DueDate != nil {
		d, err := domain.ParseDate(strings.TrimSpace(*in.DueDate))
		if err != nil {
			return domain.Task{}, ValidationError{Field: "due_date", Reason: err.Error()}
		}
		patch.DueDate = &d
	}
	if in.Tags != nil {
		patch.Tags = in.Tags
	}
	if in.Fields != nil {
		merged := MergeFields(task.Fields, in.Fields)
		if err := s.fields.ValidateTaskFields(ctx, task.BoardID, merged); err != nil {
			return domain.Task{}, err
		}
		patch.Fields = merged
	}

	updated, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return domain.Task{}, &StorageError{Op: "update task", Err: err}
	}
	return updated, nil
}
