package chat_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/roomlite/internal/bus"
	"github.com/thereayou/roomlite/internal/chat"
	"github.com/thereayou/roomlite/internal/models"
	"github.com/thereayou/roomlite/internal/store"
)

// recorder копит события шины в порядке доставки
type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recorder) handle(ev bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []bus.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]bus.EventType, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

func (r *recorder) waitTypes(t *testing.T, expected ...bus.EventType) {
	t.Helper()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.events) >= len(expected)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, expected, r.types())
}

func newTestService(t *testing.T) (*chat.Service, *recorder, store.Store) {
	b := bus.New()
	go b.Run()
	t.Cleanup(b.Stop)

	rec := &recorder{}
	unsubscribe := b.Subscribe(rec.handle)
	t.Cleanup(unsubscribe)

	st := store.NewMemory()
	svc := chat.NewService(st, b, chat.WithLatency(0, 0))
	return svc, rec, st
}

func TestRegisterThenLogin(t *testing.T) {
	svc, rec, _ := newTestService(t)

	registered, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.Email)
	assert.True(t, registered.Online)

	logged, err := svc.Login("alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, logged.ID)
	assert.Equal(t, "alice@example.com", logged.Email)

	rec.waitTypes(t, bus.EventUserJoined, bus.EventUserUpdate)
}

func TestLoginWrongCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = svc.Login("alice@example.com", "wrong")
	assert.ErrorIs(t, err, chat.ErrInvalidCredentials)

	_, err = svc.Login("nobody@example.com", "secret")
	assert.ErrorIs(t, err, chat.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, rec, _ := newTestService(t)

	first, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = svc.Register("impostor", "alice@example.com", "other")
	assert.ErrorIs(t, err, chat.ErrEmailTaken)

	// Следующая успешная команда идёт в шину сразу после user_joined:
	// отказ регистрации не опубликовал ничего между ними
	_, err = svc.CreateRoom(chat.CreateRoom{Name: "general", OwnerID: first.ID})
	require.NoError(t, err)

	rec.waitTypes(t, bus.EventUserJoined, bus.EventRoomCreated)
}

func TestCreateRoomPrivateRequiresPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	owner, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = svc.CreateRoom(chat.CreateRoom{Name: "vault", IsPrivate: true, OwnerID: owner.ID})
	assert.ErrorIs(t, err, chat.ErrMissingPassword)

	room, err := svc.CreateRoom(chat.CreateRoom{Name: "vault", IsPrivate: true, Password: "x", OwnerID: owner.ID})
	require.NoError(t, err)
	assert.True(t, room.IsPrivate)
	assert.Equal(t, "x", room.Password)
}

func TestDeleteRoomOnlyByOwner(t *testing.T) {
	svc, _, _ := newTestService(t)

	owner, err := svc.Register("u1", "u1@example.com", "secret")
	require.NoError(t, err)
	stranger, err := svc.Register("u2", "u2@example.com", "secret")
	require.NoError(t, err)

	room, err := svc.CreateRoom(chat.CreateRoom{Name: "r9", OwnerID: owner.ID})
	require.NoError(t, err)

	err = svc.DeleteRoom(room.ID, stranger.ID)
	assert.ErrorIs(t, err, chat.ErrNotOwner)

	rooms, err := svc.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)

	require.NoError(t, svc.DeleteRoom(room.ID, owner.ID))

	rooms, err = svc.ListRooms()
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestDeleteRoomNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.DeleteRoom(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)
}

func TestMessagesOrderedWithIncreasingIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	sender, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)
	room, err := svc.CreateRoom(chat.CreateRoom{Name: "r1", OwnerID: sender.ID})
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := svc.SendMessage(chat.SendMessage{RoomID: room.ID, SenderID: sender.ID, Content: content})
		require.NoError(t, err)
	}

	messages, err := svc.ListMessages(room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "two", messages[1].Content)
	assert.Equal(t, "three", messages[2].Content)

	for i := 1; i < len(messages); i++ {
		assert.Greater(t, messages[i].ID, messages[i-1].ID)
		assert.True(t, messages[i].CreatedAt.After(messages[i-1].CreatedAt))
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	sender, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)
	room, err := svc.CreateRoom(chat.CreateRoom{Name: "r1", OwnerID: sender.ID})
	require.NoError(t, err)

	_, err = svc.SendMessage(chat.SendMessage{RoomID: room.ID, SenderID: sender.ID, Content: ""})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	_, err = svc.SendMessage(chat.SendMessage{RoomID: uuid.New(), SenderID: sender.ID, Content: "hi"})
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)
}

func TestSendMessageSnapshotsSender(t *testing.T) {
	svc, _, _ := newTestService(t)

	sender, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)
	_, err = svc.UpdateProfile(sender.ID, chat.ProfileUpdate{Avatar: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	room, err := svc.CreateRoom(chat.CreateRoom{Name: "r1", OwnerID: sender.ID})
	require.NoError(t, err)

	message, err := svc.SendMessage(chat.SendMessage{RoomID: room.ID, SenderID: sender.ID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "alice", message.SenderName)
	assert.Equal(t, "data:image/png;base64,AAAA", message.SenderAvatar)
	assert.Equal(t, models.KindText, message.Kind)

	// Смена имени после отправки не меняет снимок в сообщении
	_, err = svc.UpdateProfile(sender.ID, chat.ProfileUpdate{Name: "alicia"})
	require.NoError(t, err)

	messages, err := svc.ListMessages(room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "alice", messages[0].SenderName)
}

func TestUpdateProfileMergesFields(t *testing.T) {
	svc, rec, _ := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(user.ID, chat.ProfileUpdate{Name: "alicia", Bio: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Name)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.Equal(t, "secret", updated.Password)

	rec.waitTypes(t, bus.EventUserJoined, bus.EventUserUpdate)

	_, err = svc.UpdateProfile(uuid.New(), chat.ProfileUpdate{Name: "ghost"})
	assert.ErrorIs(t, err, chat.ErrUserNotFound)
}

func TestLogout(t *testing.T) {
	svc, rec, _ := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(user.ID))

	users, err := svc.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.False(t, users[0].Online)

	restored, err := svc.Restore()
	require.NoError(t, err)
	assert.Nil(t, restored)

	rec.waitTypes(t, bus.EventUserJoined, bus.EventUserLeft)
}

func TestSessionRestoredAcrossRestart(t *testing.T) {
	svc, _, st := newTestService(t)

	user, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)

	// Новый сервис поверх того же хранилища видит сохранённую сессию
	b := bus.New()
	go b.Run()
	t.Cleanup(b.Stop)
	restartedSvc := chat.NewService(st, b, chat.WithLatency(0, 0))

	restored, err := restartedSvc.Restore()
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, user.ID, restored.ID)
}

func TestEventPublishedAfterDurableWrite(t *testing.T) {
	b := bus.New()
	go b.Run()
	t.Cleanup(b.Stop)

	st := store.NewMemory()
	svc := chat.NewService(st, b, chat.WithLatency(0, 0))

	sender, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)
	room, err := svc.CreateRoom(chat.CreateRoom{Name: "r1", OwnerID: sender.ID})
	require.NoError(t, err)

	// На момент доставки new_message запись уже должна быть в хранилище
	durable := make(chan bool, 1)
	unsubscribe := b.Subscribe(func(ev bus.Event) {
		if ev.Type != bus.EventNewMessage {
			return
		}
		message := ev.Payload.(models.Message)
		stored, _, err := st.Messages().Load(nil)
		if err != nil {
			durable <- false
			return
		}
		for _, m := range stored {
			if m.ID == message.ID {
				durable <- true
				return
			}
		}
		durable <- false
	})
	t.Cleanup(unsubscribe)

	_, err = svc.SendMessage(chat.SendMessage{RoomID: room.ID, SenderID: sender.ID, Content: "hi"})
	require.NoError(t, err)

	select {
	case ok := <-durable:
		assert.True(t, ok, "event delivered before the store write")
	case <-time.After(time.Second):
		t.Fatal("new_message was not delivered")
	}
}

func TestOrphanedMessagesSurviveRoomDelete(t *testing.T) {
	svc, _, st := newTestService(t)

	owner, err := svc.Register("alice", "alice@example.com", "secret")
	require.NoError(t, err)
	room, err := svc.CreateRoom(chat.CreateRoom{Name: "doomed", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = svc.SendMessage(chat.SendMessage{RoomID: room.ID, SenderID: owner.ID, Content: "last words"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoom(room.ID, owner.ID))

	// Сообщения удалённой комнаты остаются в хранилище осиротевшими
	stored, _, err := st.Messages().Load(nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, room.ID, stored[0].RoomID)
}
