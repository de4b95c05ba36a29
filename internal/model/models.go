// Package model defines data structure.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Message holds information about a single stored message.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
