package models

import (
	"time"

	"github.com/google/uuid"
)

// Room represents a shared channel. Its message log lives in Redis under
// the room ID; this record only tracks metadata.
type Room struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	MessageCount int64      `json:"message_count"`
}
