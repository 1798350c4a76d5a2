package chat

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomlite/internal/bus"
	"github.com/thereayou/roomlite/internal/models"
	"github.com/thereayou/roomlite/internal/store"
)

const (
	defaultLatencyMin = 100 * time.Millisecond
	defaultLatencyMax = 500 * time.Millisecond
)

// Service — командный слой поверх хранилища. Каждая пишущая команда
// читает коллекцию, проверяет, сохраняет и публикует ровно одно событие
// после записи. Команды сериализуются и имитируют сетевую задержку.
type Service struct {
	store store.Store
	bus   *bus.Bus

	mu         sync.Mutex
	latencyMin time.Duration
	latencyMax time.Duration
}

type Option func(*Service)

// WithLatency задаёт границы имитируемой задержки (0, 0 — без задержки)
func WithLatency(min, max time.Duration) Option {
	return func(s *Service) {
		s.latencyMin = min
		s.latencyMax = max
	}
}

func NewService(st store.Store, b *bus.Bus, opts ...Option) *Service {
	s := &Service{
		store:      st,
		bus:        b,
		latencyMin: defaultLatencyMin,
		latencyMax: defaultLatencyMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// simulateLatency имитирует сетевой round-trip. Начатую задержку
// нельзя прервать, вызывающая сторона может игнорировать устаревший результат
func (s *Service) simulateLatency() {
	if s.latencyMax <= 0 {
		return
	}
	d := s.latencyMin
	if spread := s.latencyMax - s.latencyMin; spread > 0 {
		d += time.Duration(rand.Int63n(int64(spread)))
	}
	time.Sleep(d)
}

// Login сверяет пару (email, пароль) и отмечает пользователя онлайн
func (s *Service) Login(email, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	users, version, err := s.store.Users().Load(nil)
	if err != nil {
		return models.User{}, err
	}

	idx := -1
	for i, u := range users {
		if u.Email == email && u.Password == password {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.User{}, ErrInvalidCredentials
	}

	users[idx].Online = true
	if err := s.store.Users().Save(users, version); err != nil {
		return models.User{}, err
	}
	if err := s.store.Session().Save(users[idx]); err != nil {
		return models.User{}, err
	}

	s.bus.Publish(bus.EventUserUpdate, users[idx])
	return users[idx], nil
}

// Register создаёт пользователя с уникальным email
func (s *Service) Register(name, email, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	users, version, err := s.store.Users().Load(nil)
	if err != nil {
		return models.User{}, err
	}

	for _, u := range users {
		if u.Email == email {
			return models.User{}, ErrEmailTaken
		}
	}

	user := models.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Password:  password,
		Online:    true,
		CreatedAt: time.Now(),
	}

	users = append(users, user)
	if err := s.store.Users().Save(users, version); err != nil {
		return models.User{}, err
	}
	if err := s.store.Session().Save(user); err != nil {
		return models.User{}, err
	}

	s.bus.Publish(bus.EventUserJoined, user)
	return user, nil
}

// Logout отмечает пользователя оффлайн и сбрасывает сессию
func (s *Service) Logout(userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	users, version, err := s.store.Users().Load(nil)
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range users {
		if u.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUserNotFound
	}

	users[idx].Online = false
	if err := s.store.Users().Save(users, version); err != nil {
		return err
	}
	if err := s.store.Session().Clear(); err != nil {
		return err
	}

	s.bus.Publish(bus.EventUserLeft, bus.UserLeft{UserID: userID})
	return nil
}

// ProfileUpdate — частичное обновление профиля, пустые поля не трогаются
type ProfileUpdate struct {
	Name     string
	Avatar   string
	Password string
	Bio      string
}

// UpdateProfile накладывает переданные поля на запись пользователя
func (s *Service) UpdateProfile(userID uuid.UUID, update ProfileUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	users, version, err := s.store.Users().Load(nil)
	if err != nil {
		return models.User{}, err
	}

	idx := -1
	for i, u := range users {
		if u.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.User{}, ErrUserNotFound
	}

	// Обновляем только переданные поля
	if update.Name != "" {
		users[idx].Name = update.Name
	}
	if update.Avatar != "" {
		users[idx].Avatar = update.Avatar
	}
	if update.Password != "" {
		users[idx].Password = update.Password
	}
	if update.Bio != "" {
		users[idx].Bio = update.Bio
	}

	if err := s.store.Users().Save(users, version); err != nil {
		return models.User{}, err
	}

	s.bus.Publish(bus.EventUserUpdate, users[idx])
	return users[idx], nil
}

// ListUsers возвращает всех пользователей
func (s *Service) ListUsers() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	users, _, err := s.store.Users().Load(nil)
	return users, err
}

// ListRooms возвращает все комнаты
func (s *Service) ListRooms() ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	rooms, _, err := s.store.Rooms().Load(nil)
	return rooms, err
}

// Room возвращает комнату по ID
func (s *Service) Room(roomID uuid.UUID) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	rooms, _, err := s.store.Rooms().Load(nil)
	if err != nil {
		return models.Room{}, err
	}

	for _, r := range rooms {
		if r.ID == roomID {
			return r, nil
		}
	}
	return models.Room{}, ErrRoomNotFound
}

type CreateRoom struct {
	Name        string
	IsPrivate   bool
	Password    string
	OwnerID     uuid.UUID
	Description string
}

// CreateRoom создаёт комнату; приватная комната требует непустой пароль
func (s *Service) CreateRoom(req CreateRoom) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	if req.IsPrivate && req.Password == "" {
		return models.Room{}, ErrMissingPassword
	}

	rooms, version, err := s.store.Rooms().Load(nil)
	if err != nil {
		return models.Room{}, err
	}

	room := models.Room{
		ID:          uuid.New(),
		Name:        req.Name,
		IsPrivate:   req.IsPrivate,
		OwnerID:     req.OwnerID,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	if req.IsPrivate {
		room.Password = req.Password
	}

	rooms = append(rooms, room)
	if err := s.store.Rooms().Save(rooms, version); err != nil {
		return models.Room{}, err
	}

	s.bus.Publish(bus.EventRoomCreated, room)
	return room, nil
}

// DeleteRoom удаляет комнату, только по запросу её владельца.
// Сообщения комнаты не вычищаются и остаются осиротевшими
func (s *Service) DeleteRoom(roomID, requesterID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	rooms, version, err := s.store.Rooms().Load(nil)
	if err != nil {
		return err
	}

	idx := -1
	for i, r := range rooms {
		if r.ID == roomID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrRoomNotFound
	}
	if rooms[idx].OwnerID != requesterID {
		return ErrNotOwner
	}

	rooms = append(rooms[:idx], rooms[idx+1:]...)
	if err := s.store.Rooms().Save(rooms, version); err != nil {
		return err
	}

	s.bus.Publish(bus.EventRoomDeleted, bus.RoomDeleted{RoomID: roomID})
	return nil
}

// ListMessages возвращает сообщения комнаты в порядке добавления
func (s *Service) ListMessages(roomID uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	messages, _, err := s.store.Messages().Load(nil)
	if err != nil {
		return nil, err
	}

	var result []models.Message
	for _, m := range messages {
		if m.RoomID == roomID {
			result = append(result, m)
		}
	}
	return result, nil
}

type SendMessage struct {
	RoomID   uuid.UUID
	SenderID uuid.UUID
	Content  string
	Kind     string
}

// SendMessage добавляет сообщение со строго возрастающим ID
// и снимком имени и аватара отправителя на момент отправки
func (s *Service) SendMessage(req SendMessage) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateLatency()

	if req.Content == "" {
		return models.Message{}, ErrEmptyMessage
	}

	rooms, _, err := s.store.Rooms().Load(nil)
	if err != nil {
		return models.Message{}, err
	}
	found := false
	for _, r := range rooms {
		if r.ID == req.RoomID {
			found = true
			break
		}
	}
	if !found {
		return models.Message{}, ErrRoomNotFound
	}

	users, _, err := s.store.Users().Load(nil)
	if err != nil {
		return models.Message{}, err
	}
	var sender *models.User
	for i, u := range users {
		if u.ID == req.SenderID {
			sender = &users[i]
			break
		}
	}
	if sender == nil {
		return models.Message{}, ErrUserNotFound
	}

	messages, version, err := s.store.Messages().Load(nil)
	if err != nil {
		return models.Message{}, err
	}

	var nextID int64 = 1
	now := time.Now()
	if n := len(messages); n > 0 {
		nextID = messages[n-1].ID + 1
		if !now.After(messages[n-1].CreatedAt) {
			now = messages[n-1].CreatedAt.Add(time.Millisecond)
		}
	}

	kind := req.Kind
	if kind == "" {
		kind = models.KindText
	}

	message := models.Message{
		ID:           nextID,
		RoomID:       req.RoomID,
		SenderID:     req.SenderID,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Content:      req.Content,
		Kind:         kind,
		CreatedAt:    now,
	}

	messages = append(messages, message)
	if err := s.store.Messages().Save(messages, version); err != nil {
		return models.Message{}, err
	}

	s.bus.Publish(bus.EventNewMessage, message)
	return message, nil
}

// Restore возвращает сохранённый снимок текущего пользователя, если есть
func (s *Service) Restore() (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Session().Load()
}
