package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anipass-feed/internal/domain"
)

type fakeBackend struct {
	domain.FeedAPI
	domain.NotificationAPI
	domain.ContentAPI
}

func newTestManager(idle time.Duration) *Manager {
	factory := func(string) (Backend, error) { return fakeBackend{}, nil }
	return NewManager(factory, nil, Config{PageSize: 8, IdleTTL: idle}, zerolog.Nop())
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(time.Hour)

	created, err := m.Create("token")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("пустой id сессии")
	}

	got, ok := m.Get(created.ID)
	if !ok || got != created {
		t.Fatalf("сессия не найдена по id")
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatalf("нашли несуществующую сессию")
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	m := newTestManager(time.Minute)

	session, err := m.Create("")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if removed := m.Sweep(time.Now()); removed != 0 {
		t.Fatalf("свежая сессия не должна выметаться")
	}
	if removed := m.Sweep(time.Now().Add(2 * time.Minute)); removed != 1 {
		t.Fatalf("ожидали удаление 1 сессии, удалено %d", removed)
	}
	if _, ok := m.Get(session.ID); ok {
		t.Fatalf("сессия осталась после выметания")
	}
}
