package domain

import (
	"context"
	"time"
)

// FeedAPI — REST-бэкенд ленты: страницы активности, лайки, закладки
// и комментарии. Бэкенд авторитетен по счётчикам и порядку записей.
type FeedAPI interface {
	ListActivities(ctx context.Context, filter string, offset, limit int) (FeedPage, error)
	LikeActivity(ctx context.Context, activityID int64) (LikeResult, error)
	UnlikeActivity(ctx context.Context, activityID int64) (LikeResult, error)
	BookmarkActivity(ctx context.Context, activityID int64) (BookmarkResult, error)
	UnbookmarkActivity(ctx context.Context, activityID int64) (BookmarkResult, error)
	ListComments(ctx context.Context, activityID int64) ([]Comment, error)
	CreateComment(ctx context.Context, activityID int64, content string, parentID *int64) (Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
	LikeComment(ctx context.Context, commentID int64) (LikeResult, error)
	UnlikeComment(ctx context.Context, commentID int64) (LikeResult, error)
}

// NotificationAPI отдаёт входящие уведомления пользователя.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, limit, offset int) ([]Notification, error)
	MarkNotificationsRead(ctx context.Context) error
}

// ContentAPI — типозависимые операции над контентом: посты, оценки
// и рецензии. Удаление рецензии не трогает оценку, удаление оценки
// убирает запись целиком.
type ContentAPI interface {
	CreatePost(ctx context.Context, content string) (Activity, error)
	DeletePost(ctx context.Context, postID int64) error
	DeleteActivity(ctx context.Context, activityID int64) error

	RateAnime(ctx context.Context, animeID int64, rating float64) error
	RateCharacter(ctx context.Context, characterID int64, rating float64) error
	DeleteAnimeRating(ctx context.Context, animeID int64) error
	DeleteCharacterRating(ctx context.Context, characterID int64) error

	CreateAnimeReview(ctx context.Context, animeID int64, draft ReviewDraft) error
	CreateCharacterReview(ctx context.Context, characterID int64, draft ReviewDraft) error
	GetMyAnimeReview(ctx context.Context, animeID int64) (Review, error)
	GetMyCharacterReview(ctx context.Context, characterID int64) (Review, error)
	UpdateAnimeReview(ctx context.Context, reviewID int64, draft ReviewDraft) error
	UpdateCharacterReview(ctx context.Context, reviewID int64, draft ReviewDraft) error
	DeleteMyAnimeReview(ctx context.Context, animeID int64) error
	DeleteMyCharacterReview(ctx context.Context, characterID int64) error
}

// Cache — простое KV-хранилище с TTL для эфемерного состояния сессии.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// AuthState сообщает, авторизован ли владелец сессии.
type AuthState interface {
	Authenticated() bool
}
