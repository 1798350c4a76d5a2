package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/thereayou/roomlite/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// record — одна коллекция в таблице collections
type record struct {
	Name    string `gorm:"primaryKey"`
	Payload []byte `gorm:"not null"`
	Version int64  `gorm:"not null;default:0"`
}

func (record) TableName() string { return "collections" }

type gormStore struct {
	db *gorm.DB
}

// Open открывает хранилище: Postgres при непустом databaseURL,
// иначе локальный SQLite-файл по пути path
func Open(databaseURL, path string) (Store, error) {
	var dialector gorm.Dialector
	if databaseURL != "" {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, err
	}

	return NewGorm(db), nil
}

func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() Collection[models.User] {
	return &gormCollection[models.User]{db: s.db, name: CollectionUsers}
}

func (s *gormStore) Rooms() Collection[models.Room] {
	return &gormCollection[models.Room]{db: s.db, name: CollectionRooms}
}

func (s *gormStore) Messages() Collection[models.Message] {
	return &gormCollection[models.Message]{db: s.db, name: CollectionMessages}
}

func (s *gormStore) Session() SessionStore {
	return &gormSession{db: s.db}
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormCollection[T any] struct {
	db   *gorm.DB
	name string
}

func (c *gormCollection[T]) Load(def []T) ([]T, int64, error) {
	var row record
	err := c.db.First(&row, "name = ?", c.name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.seed(def, 0)
	}
	if err != nil {
		return nil, 0, err
	}

	var out []T
	if err := json.Unmarshal(row.Payload, &out); err != nil {
		// Повреждённая коллекция пересоздаётся значением по умолчанию
		log.Printf("collection %q is corrupt, reseeding: %v", c.name, err)
		records, version, serr := c.seed(def, row.Version+1)
		if serr != nil {
			return nil, 0, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.name, serr)
		}
		return records, version, nil
	}

	return out, row.Version, nil
}

func (c *gormCollection[T]) seed(def []T, version int64) ([]T, int64, error) {
	payload, err := json.Marshal(def)
	if err != nil {
		return nil, 0, err
	}

	row := record{Name: c.name, Payload: payload, Version: version}
	if err := c.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return nil, 0, err
	}

	return def, version, nil
}

func (c *gormCollection[T]) Save(records []T, version int64) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}

	res := c.db.Model(&record{}).
		Where("name = ? AND version = ?", c.name, version).
		Updates(map[string]any{"payload": payload, "version": version + 1})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s@%d", ErrStaleWrite, c.name, version)
	}

	return nil
}

type gormSession struct {
	db *gorm.DB
}

func (s *gormSession) Load() (*models.User, error) {
	var row record
	err := s.db.First(&row, "name = ?", sessionKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(row.Payload, &user); err != nil {
		log.Printf("session snapshot is corrupt, clearing: %v", err)
		return nil, s.Clear()
	}

	return &user, nil
}

func (s *gormSession) Save(user models.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	row := record{Name: sessionKey, Payload: payload}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *gormSession) Clear() error {
	return s.db.Delete(&record{}, "name = ?", sessionKey).Error
}
