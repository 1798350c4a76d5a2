package store

import (
	"errors"

	"github.com/thereayou/roomlite/internal/models"
)

// Имена коллекций в хранилище
const (
	CollectionUsers    = "users"
	CollectionRooms    = "rooms"
	CollectionMessages = "messages"

	sessionKey = "session"
)

var (
	// ErrCorrupt — повреждённая коллекция, которую не удалось пересоздать
	ErrCorrupt = errors.New("store: corrupt collection")
	// ErrStaleWrite — запись с устаревшей версией коллекции
	ErrStaleWrite = errors.New("store: stale write")
)

// Collection — упорядоченная последовательность записей одной коллекции.
// Load возвращает записи и текущую версию, при первом обращении
// инициализирует коллекцию значением def. Save перезаписывает коллекцию
// целиком и отклоняет запись, если наблюдаемая версия устарела.
type Collection[T any] interface {
	Load(def []T) ([]T, int64, error)
	Save(records []T, version int64) error
}

// SessionStore хранит снимок текущего пользователя между перезапусками
type SessionStore interface {
	Load() (*models.User, error)
	Save(user models.User) error
	Clear() error
}

// Store — доступ к трём типизированным коллекциям и сессии
type Store interface {
	Users() Collection[models.User]
	Rooms() Collection[models.Room]
	Messages() Collection[models.Message]
	Session() SessionStore
	Close() error
}
