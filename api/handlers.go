package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
	"kanban-api/engine"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Services groups the write-path collaborators the handlers drive.
type Services struct {
	Mover  Mover
	Tasks  Tasks
	Reader TaskReader
	Boards Boards
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc Services, pub *Publisher, auth Authenticator, deduper Deduper, logger *log.Logger) {
	e.GET("/healthz", healthz())

	e.GET("/api/boards/:id", getBoard(svc.Boards, auth))
	e.POST("/api/columns", postColumn(svc.Boards, pub, auth))
	e.PATCH("/api/columns/:id", patchColumn(svc.Boards, pub, auth))
	e.DELETE("/api/columns/:id", deleteColumn(svc.Boards, pub, auth))
	e.GET("/api/columns/:id/tasks", getColumnTasks(svc.Reader, auth))

	e.POST("/api/tasks", postTask(svc.Tasks, pub, auth))
	e.PATCH("/api/tasks/:id", patchTask(svc.Tasks, pub, auth))
	e.POST("/api/tasks/:id/move", moveTask(svc.Mover, pub, auth, deduper, logger))
	e.DELETE("/api/tasks/:id", deleteTask(svc.Mover, pub, auth))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		//TODO: ping the task table instead of reporting static health
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func authenticate(c echo.Context, auth Authenticator) (string, error) {
	return auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
}

func newEvent(boardID, entityID, eventType string, payload any) domain.Event {
	data, err := sonic.Marshal(payload)
	if err != nil {
		data = nil
	}
	return domain.Event{
		ID:       uuid.NewString(),
		BoardID:  boardID,
		EntityID: entityID,
		Type:     eventType,
		Data:     data,
		Time:     nextTimestamp(),
	}
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

func getBoard(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		board, err := boards.GetBoardByID(ctx, c.Param("id"), true)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "board not found"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
		}
		return c.JSON(http.StatusOK, board)
	}
}

func getColumnTasks(reader TaskReader, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		tasks, err := reader.GetByColumnID(ctx, c.Param("id"))
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

type createColumnRequest struct {
	BoardID  string `json:"boardId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	WipLimit *int   `json:"wipLimit"`
}

func postColumn(boards Boards, pub *Publisher, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req createColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Name == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "column name must not be empty"})
		}
		if req.WipLimit != nil && *req.WipLimit <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "wip limit must be a positive integer"})
		}
		board, err := boards.GetBoardByID(ctx, req.BoardID, true)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "board not found"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
		}
		column := domain.Column{
			ID:       uuid.NewString(),
			BoardID:  board.ID,
			Name:     req.Name,
			Color:    req.Color,
			WipLimit: req.WipLimit,
			Position: len(board.Columns),
		}
		created, err := boards.CreateColumn(ctx, column)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
		}
		pub.Publish(board.ID, newEvent(board.ID, created.ID, domain.EventColumnCreated, created))
		return c.JSON(http.StatusCreated, created)
	}
}

type updateColumnRequest struct {
	Name          *string `json:"name"`
	Color         *string `json:"color"`
	WipLimit      *int    `json:"wipLimit"`
	ClearWipLimit bool    `json:"clearWipLimit"`
}

func patchColumn(boards Boards, pub *Publisher, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req updateColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Name != nil && *req.Name == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "column name must not be empty"})
		}
		if req.WipLimit != nil && *req.WipLimit <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "wip limit must be a positive integer"})
		}
		patch := engine.ColumnPatch{
			Name:          req.Name,
			Color:         req.Color,
			WipLimit:      req.WipLimit,
			ClearWipLimit: req.ClearWipLimit,
		}
		column, err := boards.UpdateColumn(ctx, c.Param("id"), patch)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "column not found"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
		}
		pub.Publish(column.BoardID, newEvent(column.BoardID, column.ID, domain.EventColumnUpdated, column))
		return c.JSON(http.StatusOK, column)
	}
}

func deleteColumn(boards Boards, pub *Publisher, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		column, err := boards.GetColumnByID(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "column not found"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
		}
		if err := boards.DeleteColumn(ctx, column.ID); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
		}
		pub.Publish(column.BoardID, newEvent(column.BoardID, column.ID, domain.EventColumnDeleted, column))
		return c.NoContent(http.StatusNoContent)
	}
}

type createTaskRequest struct {
	ColumnID    string         `json:"boardColumnId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AssigneeID  string         `json:"assigneeId"`
	Priority    string         `json:"priority"`
	DueDate     string         `json:"dueDate"`
	Tags        []string       `json:"tags"`
	Fields      map[string]any `json:"customFields"`
	Position    *int           `json:"position"`
}

func postTask(tasks Tasks, pub *Publisher, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := tasks.Create(ctx, engine.CreateTaskInput{
			ColumnID:    req.ColumnID,
			Title:       req.Title,
			Description: req.Description,
			AssigneeID:  req.AssigneeID,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
			Tags:        req.Tags,
			Fields:      req.Fields,
			Position:    req.Position,
		})
		if err != nil {
			return writeEngineError(c, err)
		}
		pub.Publish(task.BoardID, newEvent(task.BoardID, task.ID, domain.EventTaskCreated, task))
		return c.JSON(http.StatusCreated, task)
	}
}

type updateTaskRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	AssigneeID  *string        `json:"assigneeId"`
	Priority    *string        `json:"priority"`
	DueDate     *string        `json:"dueDate"`
	Tags        *[]string      `json:"tags"`
	Fields      map[string]any `json:"customFields"`
}

func patchTask(tasks Tasks, pub *Publisher, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := tasks.Update(ctx, c.Param("id"), engine.UpdateTaskInput{
			Title:       req.Title,
			Description: req.Description,
			AssigneeID:  req.AssigneeID,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
			Tags:        req.Tags,
			Fields:      req.Fields,
		})
		if err != nil {
			return writeEngineError(c, err)
		}
		pub.Publish(task.BoardID, newEvent(task.BoardID, task.ID, domain.EventTaskUpdated, task))
		return c.JSON(http.StatusOK, task)
	}
}

type moveTaskRequest struct {
	FromColumnID string `json:"fromColumnId"`
	ToColumnID   string `json:"toColumnId"`
	Position     int    `json:"position"`
}

func moveTask(mover Mover, pub *Publisher, auth Authenticator, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newMoveRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := authenticate(c, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
			return err
		}

		var req moveTaskRequest
		if decodeErr := decodeBody(c, &req); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
			return err
		}
		move := domain.MoveRequest{
			TaskID:       c.Param("id"),
			FromColumnID: req.FromColumnID,
			ToColumnID:   req.ToColumnID,
			Position:     req.Position,
		}
		metrics.SetSameColumn(move.FromColumnID == move.ToColumnID)

		key := c.Request().Header.Get("Idempotency-Key")
		if key != "" && deduper != nil {
			added, dedupeErr := deduper.Add(ctx, userID, key)
			if dedupeErr != nil {
				// Dedupe being unavailable must not block moves.
				c.Logger().Warnf("dedupe unavailable: %v", dedupeErr)
			} else if !added {
				metrics.SetErrorStage("duplicate")
				err = c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
				return err
			}
		}

		engineStart := time.Now()
		task, moveErr := mover.Move(ctx, move)
		metrics.ObserveEngine(time.Since(engineStart))
		if moveErr != nil {
			if key != "" && deduper != nil && engine.IsTransport(moveErr) {
				// The move may not have committed; free the key so the caller
				// can retry with it.
				if rerr := deduper.Remove(ctx, userID, key); rerr != nil {
					c.Logger().Errorf("dedupe rollback failed: %v", rerr)
				}
			}
			metrics.SetErrorStage("engine")
			err = writeEngineError(c, moveErr)
			return err
		}

		pub.Publish(task.BoardID, newEvent(task.BoardID, task.ID, domain.EventTaskMoved, task))
		err = c.JSON(http.StatusOK, task)
		return err
	}
}

func deleteTask(mover Mover, pub *Publisher, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := authenticate(c, auth); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		task, err := mover.Delete(ctx, c.Param("id"))
		if err != nil {
			return writeEngineError(c, err)
		}
		pub.Publish(task.BoardID, newEvent(task.BoardID, task.ID, domain.EventTaskDeleted, task))
		return c.NoContent(http.StatusNoContent)
	}
}
