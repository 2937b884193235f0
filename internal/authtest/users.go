package authtest

import (
	"context"
	"errors"
		"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound - пользователь не найден
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists - email уже занят
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials - неверный email или пароль
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenNotFound - refresh token неизвестен или уже использован
	ErrTokenNotFound = errors.New("refresh token not found")
)

// User - учетная запись fake сервиса
type User struct {
	CreatedAt    time.Time
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	Tier         string
	Password     string
	// Generation растет при отзыве сессий; access tokens прошлых поколений не принимаются
	Generation int
}

type refreshEntry struct {
	expiresAt time.Time
	userID    string
}

// Users хранит учетные записи и refresh tokens в памяти
type Users struct {
	users   map[string]*User // id -> user
	byEmail map[string]string
	refresh map[string]refreshEntry
	now     func() time.Time
	mu      sync.RWMutex
}

func NewUsers(now func() time.Time) *Users {
	if now == nil {
		now = time.Now
	}
	return &Users{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		refresh: make(map[string]refreshEntry),
		now:     now,
	}
}

// Create регистрирует пользователя. Email сравнивается без учета регистра.
func (s *Users) Create(_ context.Context, email, password, firstName, lastName string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := s.byEmail[key]; ok {
		return nil, ErrUserAlreadyExists
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         "user",
		Tier:         "free",
		Password:     password,
		CreatedAt:    s.now(),
	}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	cp := *u
	return &cp, nil
}

// Authenticate проверяет email и пароль
func (s *Users) Authenticate(_ context.Context, email, password string) (*User, error) {
	s.mu.RLock()
	var u User
	id, ok := s.byEmail[strings.ToLower(email)]
	if ok {
		u = *s.users[id]
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if u.Password != password {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// Get возвращает копию пользователя по ID
func (s *Users) Get(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// SaveRefreshToken запоминает выданный refresh token
func (s *Users) SaveRefreshToken(_ context.Context, token, userID string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = refreshEntry{userID: userID, expiresAt: s.now().Add(ttl)}
}

// ConsumeRefreshToken погашает refresh token и возвращает ID владельца.
// Повторное предъявление того же токена дает ErrTokenNotFound.
func (s *Users) ConsumeRefreshToken(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.refresh[token]
	if !ok {
		return "", ErrTokenNotFound
	}
	delete(s.refresh, token)

	if s.now().After(entry.expiresAt) {
		return "", ErrTokenNotFound
	}
	return entry.userID, nil
}

// RevokeUser удаляет все refresh tokens пользователя и делает
// недействительными выданные ему access tokens
func (s *Users) RevokeUser(_ context.Context, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.Generation++
	}
	deleted := 0
	for token, entry := range s.refresh {
		if entry.userID == userID {
			delete(s.refresh, token)
			deleted++
		}
	}
	return deleted
}

// RevokeAll отзывает сессии всех пользователей
func (s *Users) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		u.Generation++
	}
	clear(s.refresh)
}
