package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch is one generation of recommendations produced by a single job run.
// Batches are immutable once created.
type Batch struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ItemCount int       `json:"item_count"`
}
