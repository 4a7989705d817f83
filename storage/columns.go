package storage

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/domain"
	"kanban-api/engine"
)

type columnEntity struct {
	aztables.Entity
	Name        string `json:"Name"`
	Color       string `json:"Color"`
	WipLimit    int    `json:"WipLimit"`
	HasWipLimit bool   `json:"HasWipLimit"`
	Position    int    `json:"Position"`
}

func (e columnEntity) toDomain() domain.Column {
	c := domain.Column{
		ID:       e.RowKey,
		BoardID:  e.PartitionKey,
		Name:     e.Name,
		Color:    e.Color,
		Position: e.Position,
	}
	if e.HasWipLimit {
		limit := e.WipLimit
		c.WipLimit = &limit
	}
	return c
}

type boardEntity struct {
	aztables.Entity
	Name    string `json:"Name"`
	OwnerID string `json:"OwnerID"`
}

// GetColumnByID retrieves a column by its identifier.
func (s *Store) GetColumnByID(ctx context.Context, id string) (domain.Column, error) {
	ent, err := s.getColumnEntity(ctx, id)
	if err != nil {
		return domain.Column{}, err
	}
	return ent.toDomain(), nil
}

func (s *Store) getColumnEntity(ctx context.Context, id string) (columnEntity, error) {
	filter := "RowKey eq '" + odataString(id) + "'"
	pager := s.columnTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return columnEntity{}, err
		}
		for _, raw := range resp.Entities {
			var ent columnEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return columnEntity{}, err
			}
			return ent, nil
		}
	}
	return columnEntity{}, engine.ErrNotFound
}

// GetBoardByID retrieves a board, optionally with its columns ordered by
// position.
func (s *Store) GetBoardByID(ctx context.Context, boardID string, includeColumns bool) (domain.Board, error) {
	resp, err := s.boardTable.GetEntity(ctx, boardID, boardID, nil)
	if err != nil {
		return domain.Board{}, translateErr(err)
	}
	var ent boardEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Board{}, err
	}
	board := domain.Board{ID: ent.RowKey, Name: ent.Name, OwnerID: ent.OwnerID}
	if !includeColumns {
		return board, nil
	}
	filter := "PartitionKey eq '" + odataString(boardID) + "'"
	pager := s.columnTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return domain.Board{}, err
		}
		for _, raw := range page.Entities {
			var col columnEntity
			if err := json.Unmarshal(raw, &col); err != nil {
				return domain.Board{}, err
			}
			board.Columns = append(board.Columns, col.toDomain())
		}
	}
	sort.Slice(board.Columns, func(i, j int) bool { return board.Columns[i].Position < board.Columns[j].Position })
	return board, nil
}

// CreateColumn persists a new column row.
func (s *Store) CreateColumn(ctx context.Context, c domain.Column) (domain.Column, error) {
	ent := columnEntity{
		Entity:   aztables.Entity{PartitionKey: c.BoardID, RowKey: c.ID},
		Name:     c.Name,
		Color:    c.Color,
		Position: c.Position,
	}
	if c.WipLimit != nil {
		ent.WipLimit = *c.WipLimit
		ent.HasWipLimit = true
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return domain.Column{}, err
	}
	if _, err := s.columnTable.AddEntity(ctx, data, nil); err != nil {
		return domain.Column{}, err
	}
	return c, nil
}

// UpdateColumn merges the given patch into a column row.
func (s *Store) UpdateColumn(ctx context.Context, id string, patch engine.ColumnPatch) (domain.Column, error) {
	ent, err := s.getColumnEntity(ctx, id)
	if err != nil {
		return domain.Column{}, err
	}
	merge := map[string]any{
		"PartitionKey": ent.PartitionKey,
		"RowKey":       ent.RowKey,
	}
	if patch.Name != nil {
		merge["Name"] = *patch.Name
	}
	if patch.Color != nil {
		merge["Color"] = *patch.Color
	}
	if patch.ClearWipLimit {
		merge["HasWipLimit"] = false
		merge["WipLimit"] = 0
	} else if patch.WipLimit != nil {
		merge["HasWipLimit"] = true
		merge["WipLimit"] = *patch.WipLimit
	}
	data, err := json.Marshal(merge)
	if err != nil {
		return domain.Column{}, err
	}
	if _, err := s.columnTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeMerge}); err != nil {
		return domain.Column{}, translateErr(err)
	}
	return s.GetColumnByID(ctx, id)
}

// DeleteColumn removes a column row. Reassigning or removing the column's
// tasks first is the caller's concern.
func (s *Store) DeleteColumn(ctx context.Context, id string) error {
	ent, err := s.getColumnEntity(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.columnTable.DeleteEntity(ctx, ent.PartitionKey, ent.RowKey, nil)
	return translateErr(err)
}
