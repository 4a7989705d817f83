package domain

// Board is a collection of ordered columns representing a workflow.
type Board struct {
	ID      string   `json:"id"`
	OwnerID string   `json:"ownerId"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns,omitempty"`
}

// Column is an ordered bucket of tasks within a board.
type Column struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	// WipLimit caps the number of live tasks the column may hold. Nil means
	// unlimited.
	WipLimit *int `json:"wipLimit,omitempty"`
	Position int  `json:"position"`
}
