package bus

import (
	"github.com/google/uuid"
)

// EventType определяет типы событий
type EventType string

const (
	EventNewMessage  EventType = "new_message"
	EventRoomCreated EventType = "room_created"
	EventRoomDeleted EventType = "room_deleted"
	EventUserUpdate  EventType = "user_update"
	EventUserJoined  EventType = "user_joined"
	EventUserLeft    EventType = "user_left"
)

// Event — уведомление о зафиксированной мутации хранилища.
// Payload: models.Message, models.Room, models.User, RoomDeleted или UserLeft
type Event struct {
	Type    EventType
	Payload any
}

type RoomDeleted struct {
	RoomID uuid.UUID `json:"room_id"`
}

type UserLeft struct {
	UserID uuid.UUID `json:"user_id"`
}
