package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/thereayou/roomlite/internal/models"
)

// memoryStore хранит коллекции в памяти, для тестов и прототипирования
type memoryStore struct {
	mu       sync.Mutex
	payloads map[string][]byte
	versions map[string]int64
	session  []byte
}

func NewMemory() Store {
	return &memoryStore{
		payloads: make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

func (s *memoryStore) Users() Collection[models.User] {
	return &memCollection[models.User]{store: s, name: CollectionUsers}
}

func (s *memoryStore) Rooms() Collection[models.Room] {
	return &memCollection[models.Room]{store: s, name: CollectionRooms}
}

func (s *memoryStore) Messages() Collection[models.Message] {
	return &memCollection[models.Message]{store: s, name: CollectionMessages}
}

func (s *memoryStore) Session() SessionStore {
	return &memSession{store: s}
}

func (s *memoryStore) Close() error { return nil }

// Записи хранятся сериализованными, чтобы вызывающие стороны
// получали независимые копии, как и у дискового хранилища
type memCollection[T any] struct {
	store *memoryStore
	name  string
}

func (c *memCollection[T]) Load(def []T) ([]T, int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	payload, ok := c.store.payloads[c.name]
	if !ok {
		data, err := json.Marshal(def)
		if err != nil {
			return nil, 0, err
		}
		c.store.payloads[c.name] = data
		c.store.versions[c.name] = 0
		return def, 0, nil
	}

	var out []T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.name, err)
	}

	return out, c.store.versions[c.name], nil
}

func (c *memCollection[T]) Save(records []T, version int64) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	current, ok := c.store.versions[c.name]
	if !ok || current != version {
		return fmt.Errorf("%w: %s@%d", ErrStaleWrite, c.name, version)
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}

	c.store.payloads[c.name] = payload
	c.store.versions[c.name] = version + 1
	return nil
}

type memSession struct {
	store *memoryStore
}

func (s *memSession) Load() (*models.User, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if s.store.session == nil {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal(s.store.session, &user); err != nil {
		s.store.session = nil
		return nil, nil
	}

	return &user, nil
}

func (s *memSession) Save(user models.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.session = payload
	return nil
}

func (s *memSession) Clear() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.session = nil
	return nil
}
