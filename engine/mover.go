package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"kanban-api/domain"
)

// Mover moves tasks between columns and reorders them within a column while
// holding two invariants: a column's WIP limit is never exceeded, and the
// positions of the live tasks in every column stay a dense zero-based
// sequence. Atomicity across the reads and the two writes of a move is the
// task store's concern; the mover itself holds no locks and keeps no state
// across calls.
type Mover struct {
	tasks   TaskStore
	columns ColumnStore
}

// NewMover creates a Mover over the given collaborators.
func NewMover(tasks TaskStore, columns ColumnStore) *Mover {
	return &Mover{tasks: tasks, columns: columns}
}

// Move relocates a task to req.Position in req.ToColumnID and renumbers every
// displaced task. WIP admission is checked before the task is loaded and
// before any write: a rejected move has zero observable side effects.
func (m *Mover) Move(ctx context.Context, req domain.MoveRequest) (domain.Task, error) {
	if _, err := uuid.Parse(req.TaskID); err != nil {
		return domain.Task{}, ErrInvalidIdentifier
	}
	if req.Position < 0 {
		return domain.Task{}, ErrInvalidPosition
	}

	target, err := m.columns.GetColumnByID(ctx, req.ToColumnID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Task{}, NotFoundError{Entity: "column", ID: req.ToColumnID}
		}
		return domain.Task{}, &MoveFailedError{Err: err}
	}

	var targetTasks []domain.Task
	targetLoaded := false
	if target.WipLimit != nil {
		targetTasks, err = m.tasks.GetByColumnID(ctx, target.ID)
		if err != nil {
			return domain.Task{}, &MoveFailedError{Err: err}
		}
		targetLoaded = true
		// A same-column move is already counted in the occupancy.
		projected := len(targetTasks)
		if req.FromColumnID != req.ToColumnID {
			projected++
		}
		if projected > *target.WipLimit {
			return domain.Task{}, WipLimitError{ColumnID: target.ID, ColumnName: target.Name, Limit: *target.WipLimit}
		}
	}

	task, err := m.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Task{}, NotFoundError{Entity: "task", ID: req.TaskID}
		}
		return domain.Task{}, &MoveFailedError{Err: err}
	}

	if !targetLoaded {
		targetTasks, err = m.tasks.GetByColumnID(ctx, target.ID)
		if err != nil {
			return domain.Task{}, &MoveFailedError{Err: err}
		}
	}

	var shifts []PositionUpdate
	if task.ColumnID == target.ID {
		shifts = reorderShifts(targetTasks, task.ID, task.Position, req.Position)
	} else {
		for _, t := range targetTasks {
			if t.Position >= req.Position {
				shifts = append(shifts, PositionUpdate{ID: t.ID, Position: t.Position + 1})
			}
		}
		sourceTasks, err := m.tasks.GetByColumnID(ctx, task.ColumnID)
		if err != nil {
			return domain.Task{}, &MoveFailedError{Err: err}
		}
		shifts = append(shifts, closeGap(sourceTasks, task)...)
	}

	moved, err := m.tasks.Update(ctx, task.ID, TaskPatch{ColumnID: &target.ID, Position: &req.Position})
	if err != nil {
		return domain.Task{}, &MoveFailedError{Err: err}
	}

	if len(shifts) > 0 {
		if err := m.tasks.BatchUpdatePositions(ctx, target.BoardID, shifts); err != nil {
			return domain.Task{}, &PositionUpdateError{Err: err}
		}
	}
	return moved, nil
}

// Delete removes a task and renumbers the column it leaves, reusing the same
// gap-closing shift a cross-column move applies to its source column. The
// removed task is returned for the caller's event payload.
func (m *Mover) Delete(ctx context.Context, taskID string) (domain.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return domain.Task{}, ErrInvalidIdentifier
	}
	task, err := m.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Task{}, NotFoundError{Entity: "task", ID: taskID}
		}
		return domain.Task{}, &StorageError{Op: "load task", Err: err}
	}
	columnTasks, err := m.tasks.GetByColumnID(ctx, task.ColumnID)
	if err != nil {
		return domain.Task{}, &StorageError{Op: "load column tasks", Err: err}
	}
	if err := m.tasks.Delete(ctx, taskID); err != nil {
		return domain.Task{}, &StorageError{Op: "delete task", Err: err}
	}
	if shifts := closeGap(columnTasks, task); len(shifts) > 0 {
		if err := m.tasks.BatchUpdatePositions(ctx, task.BoardID, shifts); err != nil {
			return domain.Task{}, &PositionUpdateError{Err: err}
		}
	}
	return task, nil
}

// reorderShifts computes the in-place shifts for a same-column move from old
// to new. Moving down pulls the tasks in (old, new] up by one; moving up
// pushes the tasks in [new, old) down by one. old == new shifts nothing.
func reorderShifts(tasks []domain.Task, movingID string, old, new int) []PositionUpdate {
	var shifts []PositionUpdate
	for _, t := range tasks {
		if t.ID == movingID {
			continue
		}
		switch {
		case old < new && t.Position > old && t.Position <= new:
			shifts = append(shifts, PositionUpdate{ID: t.ID, Position: t.Position - 1})
		case old > new && t.Position >= new && t.Position < old:
			shifts = append(shifts, PositionUpdate{ID: t.ID, Position: t.Position + 1})
		}
	}
	return shifts
}

// closeGap shifts every task ordered after the departing one down by one,
// restoring a dense sequence in the column the task left.
func closeGap(tasks []domain.Task, departed domain.Task) []PositionUpdate {
	var shifts []PositionUpdate
	for _, t := range tasks {
		if t.ID == departed.ID {
			continue
		}
		if t.Position > departed.Position {
			shifts = append(shifts, PositionUpdate{ID: t.ID, Position: t.Position - 1})
		}
	}
	return shifts
}
