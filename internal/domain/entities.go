package domain

import "time"

// ActivityType определяет тип записи в ленте.
type ActivityType string

const (
	ActivityAnimeRating     ActivityType = "anime_rating"
	ActivityCharacterRating ActivityType = "character_rating"
	ActivityUserPost        ActivityType = "user_post"
	ActivityRankPromotion   ActivityType = "rank_promotion"
)

// Activity описывает одну запись ленты активности.
type Activity struct {
	ID               int64        `json:"id"`
	ActivityType     ActivityType `json:"activity_type"`
	UserID           int64        `json:"user_id"`
	ItemID           int64        `json:"item_id"`
	Username         string       `json:"username"`
	DisplayName      string       `json:"display_name"`
	AvatarURL        string       `json:"avatar_url"`
	OtakuScore       int          `json:"otaku_score"`
	ItemTitle        string       `json:"item_title"`
	ItemTitleKorean  string       `json:"item_title_korean"`
	ItemImage        string       `json:"item_image"`
	AnimeID          int64        `json:"anime_id,omitempty"`
	AnimeTitle       string       `json:"anime_title,omitempty"`
	AnimeTitleKorean string       `json:"anime_title_korean,omitempty"`
	Rating           float64      `json:"rating,omitempty"`
	ReviewID         int64        `json:"review_id,omitempty"`
	ReviewTitle      string       `json:"review_title,omitempty"`
	ReviewContent    string       `json:"review_content,omitempty"`
	IsSpoiler        bool         `json:"is_spoiler"`
	CreatedAt        time.Time    `json:"activity_time"`
	LikesCount       int          `json:"likes_count"`
	CommentsCount    int          `json:"comments_count"`
	UserLiked        bool         `json:"user_liked"`
	Bookmarked       bool         `json:"bookmarked"`

	// Notifications заполняется только для синтетических записей,
	// собранных из группы уведомлений.
	Notifications []Notification `json:"notifications,omitempty"`
}

// HasReview сообщает, есть ли у записи текст рецензии.
func (a Activity) HasReview() bool {
	return len(a.ReviewContent) > 0
}

// Comment описывает комментарий к записи ленты.
// Ответы вложены ровно на один уровень: у ответа ParentID != nil,
// а его собственный список Replies всегда пуст.
type Comment struct {
	ID          int64     `json:"id"`
	ActivityID  int64     `json:"activity_id"`
	ParentID    *int64    `json:"parent_comment_id,omitempty"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	LikesCount  int       `json:"likes_count"`
	UserLiked   bool      `json:"user_liked"`
	Replies     []Comment `json:"replies,omitempty"`
}

// FeedPage содержит одну страницу ленты и признак продолжения.
type FeedPage struct {
	Items   []Activity `json:"items"`
	HasMore bool       `json:"has_more"`
}

// EngagementState хранит клиентское состояние вовлечённости
// для записи или комментария. Создаётся из серверного снапшота и
// расходится с ним только на время оптимистичного переключения.
type EngagementState struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
	Bookmarked bool `json:"bookmarked"`
}

// LikeResult — авторитетный ответ бэкенда на переключение лайка.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"like_count"`
}

// BookmarkResult — ответ бэкенда на переключение закладки.
type BookmarkResult struct {
	Bookmarked bool `json:"bookmarked"`
}

// ReviewDraft — содержимое создаваемой или изменяемой рецензии.
type ReviewDraft struct {
	Rating    float64 `json:"rating"`
	Content   string  `json:"content"`
	IsSpoiler bool    `json:"is_spoiler"`
}

// Review — рецензия текущего пользователя на тайтл или персонажа.
type Review struct {
	ID        int64   `json:"review_id"`
	Rating    float64 `json:"rating"`
	Content   string  `json:"content"`
	IsSpoiler bool    `json:"is_spoiler"`
}

// Notification описывает одно входящее уведомление.
type Notification struct {
	ID            int64        `json:"id"`
	ActivityID    int64        `json:"activity_id"`
	ActivityType  ActivityType `json:"activity_type"`
	ItemID        int64        `json:"item_id"`
	TargetUserID  int64        `json:"target_user_id"`
	ActorUsername string       `json:"activity_username"`
	ActorName     string       `json:"activity_display_name"`
	ActorAvatar   string       `json:"activity_avatar_url"`
	ActorScore    int          `json:"activity_otaku_score"`
	ItemTitle     string       `json:"item_title"`
	ItemImage     string       `json:"item_image"`
	AnimeID       int64        `json:"anime_id,omitempty"`
	AnimeTitle    string       `json:"anime_title,omitempty"`
	AnimeTitleKR  string       `json:"anime_title_korean,omitempty"`
	MyRating      float64      `json:"my_rating,omitempty"`
	Text          string       `json:"activity_text,omitempty"`
	LikesCount    int          `json:"activity_likes_count"`
	CommentsCount int          `json:"activity_comments_count"`
	UserLiked     bool         `json:"user_has_liked"`
	CreatedAt     time.Time    `json:"activity_created_at"`
}
