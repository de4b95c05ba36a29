package model

import (
	"github.com/voyas/api/internal/database"
)

// FromRow converts a messages table row into the API representation.
func FromRow(row database.Message) Message {
	return Message{
		ID:        row.ID.Bytes,
		Text:      row.Text,
		CreatedAt: row.CreatedAt.Time.UTC(),
	}
}
