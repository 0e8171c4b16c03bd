package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a generic CRUD resource
type Item struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemUpdate carries a partial update. Nil fields are left unchanged.
// These are the only fields an update may touch; everything else on the
// record is out of reach of callers.
type ItemUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// IsEmpty reports whether the update would change nothing
func (u ItemUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil
}
