package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"kanban-api/domain"
	"kanban-api/engine"
)

// Table transactions accept at most 100 actions per submission.
const maxTransactionActions = 100

// odataString escapes a string literal for use in an OData filter. Identifiers
// arrive from request paths, so a stray quote must not alter the filter.
func odataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Store provides access to the underlying persistence mechanisms. Task rows
// are partitioned by board, so the batched position shift of a move commits as
// a single table transaction within its board.
type Store struct {
	taskTable   *aztables.Client
	columnTable *aztables.Client
	boardTable  *aztables.Client
	fieldTable  *aztables.Client
	eventQueue  *azqueue.QueueClient
}

// Tables names the four tables a Store reads and writes.
type Tables struct {
	Tasks   string
	Columns string
	Boards  string
	Fields  string
}

// New creates a Store from the given connection string.
func New(connStr string, tables Tables, eventQueue string) (*Store, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Store{
		taskTable:   svc.NewClient(tables.Tasks),
		columnTable: svc.NewClient(tables.Columns),
		boardTable:  svc.NewClient(tables.Boards),
		fieldTable:  svc.NewClient(tables.Fields),
		eventQueue:  eq,
	}, nil
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	ColumnID    string `json:"ColumnID"`
	AssigneeID  string `json:"AssigneeID"`
	Priority    string `json:"Priority"`
	DueDate     string `json:"DueDate"`
	Tags        string `json:"Tags"`
	Fields      string `json:"Fields"`
	Position    int    `json:"Position"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
	Deleted     bool   `json:"Deleted"`
	DeletedAt   string `json:"DeletedAt"`
}

func (e taskEntity) toDomain() domain.Task {
	t := domain.Task{
		ID:          e.RowKey,
		BoardID:     e.PartitionKey,
		ColumnID:    e.ColumnID,
		Title:       e.Title,
		Description: e.Description,
		AssigneeID:  e.AssigneeID,
		Priority:    domain.Priority(e.Priority),
		Position:    e.Position,
	}
	if e.DueDate != "" {
		if d, err := time.Parse(time.RFC3339, e.DueDate); err == nil {
			t.DueDate = &d
		}
	}
	if e.Tags != "" {
		_ = json.Unmarshal([]byte(e.Tags), &t.Tags)
	}
	if e.Fields != "" {
		_ = json.Unmarshal([]byte(e.Fields), &t.Fields)
	}
	if d, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
		t.CreatedAt = d
	}
	if d, err := time.Parse(time.RFC3339, e.UpdatedAt); err == nil {
		t.UpdatedAt = d
	}
	if e.DeletedAt != "" {
		if d, err := time.Parse(time.RFC3339, e.DeletedAt); err == nil {
			t.DeletedAt = &d
		}
	}
	return t
}

// GetByID retrieves a live task by its identifier.
func (s *Store) GetByID(ctx context.Context, id string) (domain.Task, error) {
	ent, err := s.getTaskEntity(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	return ent.toDomain(), nil
}

func (s *Store) getTaskEntity(ctx context.Context, id string) (taskEntity, error) {
	filter := "RowKey eq '" + odataString(id) + "' and Deleted eq false"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return taskEntity{}, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return taskEntity{}, err
			}
			return ent, nil
		}
	}
	return taskEntity{}, engine.ErrNotFound
}

// GetByColumnID retrieves the live tasks of a column ordered by position.
func (s *Store) GetByColumnID(ctx context.Context, columnID string) ([]domain.Task, error) {
	filter := "ColumnID eq '" + odataString(columnID) + "' and Deleted eq false"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, ent.toDomain())
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Position < tasks[j].Position })
	return tasks, nil
}

// Create persists a new task row.
func (s *Store) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	ent := taskEntity{
		Entity:      aztables.Entity{PartitionKey: t.BoardID, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		ColumnID:    t.ColumnID,
		AssigneeID:  t.AssigneeID,
		Priority:    string(t.Priority),
		Position:    t.Position,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.DueDate != nil {
		ent.DueDate = t.DueDate.UTC().Format(time.RFC3339)
	}
	if len(t.Tags) > 0 {
		data, err := json.Marshal(t.Tags)
		if err != nil {
			return domain.Task{}, err
		}
		ent.Tags = string(data)
	}
	if len(t.Fields) > 0 {
		data, err := json.Marshal(t.Fields)
		if err != nil {
			return domain.Task{}, err
		}
		ent.Fields = string(data)
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.AddEntity(ctx, data, nil); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// Update merges the given patch into a task row and returns the result.
func (s *Store) Update(ctx context.Context, id string, patch engine.TaskPatch) (domain.Task, error) {
	ent, err := s.getTaskEntity(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	merge := map[string]any{
		"PartitionKey": ent.PartitionKey,
		"RowKey":       ent.RowKey,
		"UpdatedAt":    time.Now().UTC().Format(time.RFC3339),
	}
	if patch.Title != nil {
		merge["Title"] = *patch.Title
	}
	if patch.Description != nil {
		merge["Description"] = *patch.Description
	}
	if patch.ColumnID != nil {
		merge["ColumnID"] = *patch.ColumnID
	}
	if patch.AssigneeID != nil {
		merge["AssigneeID"] = *patch.AssigneeID
	}
	if patch.Priority != nil {
		merge["Priority"] = string(*patch.Priority)
	}
	if patch.DueDate != nil {
		merge["DueDate"] = patch.DueDate.UTC().Format(time.RFC3339)
	}
	if patch.Tags != nil {
		data, err := json.Marshal(*patch.Tags)
		if err != nil {
			return domain.Task{}, err
		}
		merge["Tags"] = string(data)
	}
	if patch.Fields != nil {
		data, err := json.Marshal(patch.Fields)
		if err != nil {
			return domain.Task{}, err
		}
		merge["Fields"] = string(data)
	}
	if patch.Position != nil {
		merge["Position"] = *patch.Position
	}
	data, err := json.Marshal(merge)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeMerge}); err != nil {
		return domain.Task{}, translateErr(err)
	}
	return s.GetByID(ctx, id)
}

// BatchUpdatePositions applies a position shift to many rows of one board in
// table transactions. A single transaction holds up to 100 actions; columns
// that large are split, which keeps atomicity per chunk only.
func (s *Store) BatchUpdatePositions(ctx context.Context, boardID string, updates []engine.PositionUpdate) error {
	for start := 0; start < len(updates); start += maxTransactionActions {
		end := start + maxTransactionActions
		if end > len(updates) {
			end = len(updates)
		}
		actions := make([]aztables.TransactionAction, 0, end-start)
		for _, u := range updates[start:end] {
			merge := map[string]any{
				"PartitionKey": boardID,
				"RowKey":       u.ID,
				"Position":     u.Position,
				"UpdatedAt":    time.Now().UTC().Format(time.RFC3339),
			}
			if u.ColumnID != "" {
				merge["ColumnID"] = u.ColumnID
			}
			data, err := json.Marshal(merge)
			if err != nil {
				return err
			}
			actions = append(actions, aztables.TransactionAction{
				ActionType: aztables.TransactionTypeUpdateMerge,
				Entity:     data,
			})
		}
		if _, err := s.taskTable.SubmitTransaction(ctx, actions, nil); err != nil {
			return err
		}
	}
	return nil
}

// Delete soft-deletes a task row; reads filter deleted rows out.
func (s *Store) Delete(ctx context.Context, id string) error {
	ent, err := s.getTaskEntity(ctx, id)
	if err != nil {
		return err
	}
	merge := map[string]any{
		"PartitionKey": ent.PartitionKey,
		"RowKey":       ent.RowKey,
		"Deleted":      true,
		"DeletedAt":    time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(merge)
	if err != nil {
		return err
	}
	_, err = s.taskTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeMerge})
	return translateErr(err)
}

func translateErr(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return engine.ErrNotFound
	}
	return err
}
