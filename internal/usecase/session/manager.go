package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"anipass-feed/internal/domain"
	"anipass-feed/internal/infra/metrics"
	"anipass-feed/internal/usecase/content"
	"anipass-feed/internal/usecase/engagement"
	"anipass-feed/internal/usecase/feed"
	"anipass-feed/internal/usecase/notifications"
)

// Backend объединяет порты бэкенда, нужные одной сессии.
type Backend interface {
	domain.FeedAPI
	domain.NotificationAPI
	domain.ContentAPI
}

// BackendFactory создаёт клиента бэкенда под токен владельца сессии.
type BackendFactory func(token string) (Backend, error)

type authState struct {
	token string
}

func (a authState) Authenticated() bool {
	return a.token != ""
}

// Session — состояние одной сессии ленты: пагинатор, хранилище
// вовлечённости и сервисы поверх клиента с токеном владельца.
type Session struct {
	ID            string
	Feed          *feed.Paginator
	Engagement    *engagement.Store
	Content       *content.Service
	Notifications *notifications.Service

	lastSeen time.Time
}

// Config — параметры создаваемых сессий.
type Config struct {
	PageSize          int
	CacheTTL          time.Duration
	IdleTTL           time.Duration
	NotificationLimit int
}

// Manager создаёт сессии, раздаёт их по id и выметает простаивающие.
type Manager struct {
	factory BackendFactory
	cache   domain.Cache
	cfg     Config
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager создаёт менеджер сессий.
func NewManager(factory BackendFactory, cache domain.Cache, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &Manager{
		factory:  factory,
		cache:    cache,
		cfg:      cfg,
		log:      logger,
		sessions: make(map[string]*Session),
	}
}

// Create заводит новую сессию для владельца с данным токеном.
// Пустой токен означает неавторизованного посетителя: лента ему
// доступна, действия вовлечённости — нет.
func (m *Manager) Create(token string) (*Session, error) {
	backend, err := m.factory(token)
	if err != nil {
		return nil, fmt.Errorf("создание клиента бэкенда: %w", err)
	}

	id := uuid.NewString()
	auth := authState{token: token}
	session := &Session{
		ID:            id,
		Feed:          feed.NewPaginator(backend, m.cache, id, m.cfg.CacheTTL, m.cfg.PageSize),
		Engagement:    engagement.NewStore(backend, auth, m.cache, "bookmarks:"+id, m.cfg.IdleTTL),
		Content:       content.NewService(backend, auth),
		Notifications: notifications.NewService(backend, m.cfg.NotificationLimit),
		lastSeen:      time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = session
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.log.Debug().Str("session_id", id).Bool("authenticated", auth.Authenticated()).Msg("сессия создана")
	return session, nil
}

// Get возвращает сессию по id и продлевает её жизнь.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if ok {
		session.lastSeen = time.Now()
	}
	return session, ok
}

// Sweep удаляет сессии, простаивающие дольше IdleTTL.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, session := range m.sessions {
		if now.Sub(session.lastSeen) > m.cfg.IdleTTL {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.log.Debug().Int("removed", removed).Msg("простаивающие сессии удалены")
	}
	return removed
}
