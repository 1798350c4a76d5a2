package chat

import "errors"

// Ошибки валидации команд. Команда, завершившаяся одной из них,
// не меняет хранилище и не публикует событий.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrMissingPassword    = errors.New("private room requires a password")
	ErrNotOwner           = errors.New("only the room owner can do this")
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmptyMessage       = errors.New("message content is empty")
)
