package models

import (
	"github.com/google/uuid"
	"time"
)

type Room struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsPrivate   bool      `json:"is_private"`
	Password    string    `json:"password,omitempty"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
