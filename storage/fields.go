package storage

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/domain"
)

type fieldEntity struct {
	aztables.Entity
	Name     string `json:"Name"`
	Type     string `json:"Type"`
	Config   string `json:"Config"`
	Required bool   `json:"Required"`
}

// GetFieldsByBoardID retrieves the custom-field definitions declared for a
// board. Rows with a config that no longer parses are skipped rather than
// failing every task write on the board.
func (s *Store) GetFieldsByBoardID(ctx context.Context, boardID string) ([]domain.FieldDefinition, error) {
	filter := "PartitionKey eq '" + odataString(boardID) + "'"
	pager := s.fieldTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	defs := []domain.FieldDefinition{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent fieldEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			def := domain.FieldDefinition{
				ID:       ent.RowKey,
				BoardID:  ent.PartitionKey,
				Name:     ent.Name,
				Type:     domain.FieldType(ent.Type),
				Required: ent.Required,
			}
			if ent.Config != "" {
				if err := json.Unmarshal([]byte(ent.Config), &def.Config); err != nil {
					continue
				}
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}
