package notifications

import (
	"context"
	"testing"
	"time"

	"anipass-feed/internal/domain"
)

type stubNotificationAPI struct {
	items      []domain.Notification
	markedRead bool
}

func (s *stubNotificationAPI) ListNotifications(context.Context, int, int) ([]domain.Notification, error) {
	return s.items, nil
}

func (s *stubNotificationAPI) MarkNotificationsRead(context.Context) error {
	s.markedRead = true
	return nil
}

func TestGroupCollapsesByTypeAndItem(t *testing.T) {
	now := time.Now()
	items := []domain.Notification{
		{ID: 1, ActivityID: 100, ActivityType: domain.ActivityAnimeRating, ItemID: 7, ActorUsername: "mia", LikesCount: 3, CreatedAt: now},
		{ID: 2, ActivityID: 100, ActivityType: domain.ActivityAnimeRating, ItemID: 7, ActorUsername: "rei", CreatedAt: now.Add(-time.Hour)},
		{ID: 3, ActivityID: 200, ActivityType: domain.ActivityUserPost, ItemID: 7, CreatedAt: now.Add(-2 * time.Hour)},
	}

	grouped := Group(items)
	if len(grouped) != 2 {
		t.Fatalf("ожидали 2 группы, получили %d", len(grouped))
	}

	first := grouped[0]
	if first.ID != 100 || first.Username != "mia" || first.LikesCount != 3 {
		t.Fatalf("группа должна наследовать поля свежего уведомления: %+v", first)
	}
	if len(first.Notifications) != 2 {
		t.Fatalf("ожидали 2 уведомления в группе, получили %d", len(first.Notifications))
	}
	if grouped[1].ActivityType != domain.ActivityUserPost {
		t.Fatalf("нарушен порядок групп")
	}
}

func TestLoadMarksRead(t *testing.T) {
	api := &stubNotificationAPI{items: []domain.Notification{
		{ID: 1, ActivityID: 100, ActivityType: domain.ActivityAnimeRating, ItemID: 7},
	}}
	service := NewService(api, 0)

	grouped, err := service.Load(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !api.markedRead {
		t.Fatalf("уведомления не помечены прочитанными")
	}
	if len(grouped) != 1 {
		t.Fatalf("ожидали 1 группу, получили %d", len(grouped))
	}
}

func TestLoadEmpty(t *testing.T) {
	api := &stubNotificationAPI{}
	service := NewService(api, 0)

	grouped, err := service.Load(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(grouped) != 0 {
		t.Fatalf("ожидали пустой список")
	}
}
