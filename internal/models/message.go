package models

import (
	"github.com/google/uuid"
	"time"
)

// Типы содержимого сообщения
const (
	KindText  = "text"
	KindImage = "image"
)

type Message struct {
	ID           int64     `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	SenderID     uuid.UUID `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	SenderAvatar string    `json:"sender_avatar"`
	Content      string    `json:"content"`
	Kind         string    `json:"kind"`
	CreatedAt    time.Time `json:"created_at"`
}
