package session

import (
	"github.com/google/uuid"
	"github.com/thereayou/roomlite/internal/chat"
	"github.com/thereayou/roomlite/internal/models"
)

// State — состояние попытки входа в комнату
type State string

const (
	StateIdle      State = "idle"
	StateChallenge State = "credential_challenge"
	StateJoined    State = "joined"
	StateRejected  State = "rejected"
)

// Gate решает, требовать ли пароль при входе в комнату
type Gate struct {
	svc *chat.Service
}

func NewGate(svc *chat.Service) *Gate {
	return &Gate{svc: svc}
}

// Join — одна попытка входа в комнату. Публичная комната переходит
// сразу в Joined, приватная требует пароль через Submit
type Join struct {
	svc      *chat.Service
	room     models.Room
	state    State
	messages []models.Message
}

// Begin начинает попытку входа в комнату
func (g *Gate) Begin(roomID uuid.UUID) (*Join, error) {
	room, err := g.svc.Room(roomID)
	if err != nil {
		return nil, err
	}

	j := &Join{svc: g.svc, room: room, state: StateIdle}

	if !room.IsPrivate {
		if err := j.complete(); err != nil {
			return nil, err
		}
		return j, nil
	}

	j.state = StateChallenge
	return j, nil
}

// Submit проверяет пароль. Ошибка локальна, попытку можно
// повторять с новым паролем без ограничений
func (j *Join) Submit(password string) error {
	switch j.state {
	case StateChallenge, StateRejected:
	default:
		return nil
	}

	if password != j.room.Password {
		j.state = StateRejected
		return chat.ErrInvalidCredentials
	}

	return j.complete()
}

// complete переводит попытку в Joined и загружает историю комнаты
func (j *Join) complete() error {
	messages, err := j.svc.ListMessages(j.room.ID)
	if err != nil {
		return err
	}

	j.state = StateJoined
	j.messages = messages
	return nil
}

func (j *Join) State() State { return j.state }

func (j *Join) Room() models.Room { return j.room }

// Messages — история комнаты, загруженная при переходе в Joined
func (j *Join) Messages() []models.Message { return j.messages }
