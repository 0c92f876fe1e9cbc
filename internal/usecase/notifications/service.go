package notifications

import (
	"context"
	"fmt"

	"anipass-feed/internal/domain"
)

// Service загружает уведомления и сворачивает их в синтетические
// записи ленты: одна запись на пару (тип активности, предмет).
type Service struct {
	api   domain.NotificationAPI
	limit int
}

// NewService создаёт сервис уведомлений.
func NewService(api domain.NotificationAPI, limit int) *Service {
	if limit <= 0 {
		limit = 50
	}
	return &Service{api: api, limit: limit}
}

// Load возвращает сгруппированные уведомления в виде записей ленты
// и помечает все уведомления прочитанными.
func (s *Service) Load(ctx context.Context) ([]domain.Activity, error) {
	items, err := s.api.ListNotifications(ctx, s.limit, 0)
	if err != nil {
		return nil, fmt.Errorf("загрузка уведомлений: %w", err)
	}
	if err := s.api.MarkNotificationsRead(ctx); err != nil {
		return nil, fmt.Errorf("пометка прочитанными: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return Group(items), nil
}

// Group сворачивает уведомления по (тип, предмет), сохраняя порядок
// первого появления. Первым в группе оказывается самое свежее
// уведомление, и его поля задают синтетическую запись.
func Group(items []domain.Notification) []domain.Activity {
	byKey := make(map[string][]domain.Notification)
	var order []string
	for _, item := range items {
		key := fmt.Sprintf("%s_%d", item.ActivityType, item.ItemID)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], item)
	}

	activities := make([]domain.Activity, 0, len(order))
	for _, key := range order {
		group := byKey[key]
		latest := group[0]
		activities = append(activities, domain.Activity{
			ID:               latest.ActivityID,
			ActivityType:     latest.ActivityType,
			UserID:           latest.TargetUserID,
			ItemID:           latest.ItemID,
			Username:         latest.ActorUsername,
			DisplayName:      latest.ActorName,
			AvatarURL:        latest.ActorAvatar,
			OtakuScore:       latest.ActorScore,
			ItemTitle:        latest.ItemTitle,
			ItemImage:        latest.ItemImage,
			AnimeID:          latest.AnimeID,
			AnimeTitle:       latest.AnimeTitle,
			AnimeTitleKorean: latest.AnimeTitleKR,
			Rating:           latest.MyRating,
			ReviewContent:    latest.Text,
			CreatedAt:        latest.CreatedAt,
			LikesCount:       latest.LikesCount,
			CommentsCount:    latest.CommentsCount,
			UserLiked:        latest.UserLiked,
			Notifications:    group,
		})
	}
	return activities
}
