package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"anipass-feed/internal/domain"
	"anipass-feed/internal/infra/metrics"
)

// activityState — состояние вовлечённости одной записи. Версии лайка
// и закладки независимы: счётчик растёт при каждом оптимистичном
// переключении, и ответы с устаревшей версией отбрасываются.
type activityState struct {
	liked            bool
	likesCount       int
	likeVer          uint64
	likeInFlight     bool
	bookmarked       bool
	bookmarkVer      uint64
	bookmarkInFlight bool
	commentsCount    int
}

type commentState struct {
	liked      bool
	likesCount int
	ver        uint64
	inFlight   bool
}

// Store — единый источник правды о лайках, закладках и комментариях
// видимых записей. Оптимистично применяет действие до ответа бэкенда,
// затем сверяется с авторитетными значениями или откатывается.
type Store struct {
	api  domain.FeedAPI
	auth domain.AuthState

	cache       domain.Cache
	bookmarkKey string
	bookmarkTTL time.Duration

	mu           sync.Mutex
	activities   map[int64]*activityState
	commentLikes map[int64]*commentState
	comments     map[int64][]domain.Comment
}

// NewStore создаёт хранилище. Кэш опционален и используется как
// запасной список закладок, когда бэкенд не отдаёт их в снапшоте.
func NewStore(api domain.FeedAPI, auth domain.AuthState, cache domain.Cache, bookmarkKey string, bookmarkTTL time.Duration) *Store {
	return &Store{
		api:          api,
		auth:         auth,
		cache:        cache,
		bookmarkKey:  bookmarkKey,
		bookmarkTTL:  bookmarkTTL,
		activities:   make(map[int64]*activityState),
		commentLikes: make(map[int64]*commentState),
		comments:     make(map[int64][]domain.Comment),
	}
}

// Seed заводит состояние для записей, попавших в видимый набор.
// Существующие состояния не перетираются: локальная версия может
// быть новее серверного снапшота.
func (s *Store) Seed(ctx context.Context, activities []domain.Activity) {
	fallback := s.bookmarkFallback(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, activity := range activities {
		if _, ok := s.activities[activity.ID]; ok {
			continue
		}
		s.activities[activity.ID] = &activityState{
			liked:         activity.UserLiked,
			likesCount:    activity.LikesCount,
			bookmarked:    activity.Bookmarked || fallback[activity.ID],
			commentsCount: activity.CommentsCount,
		}
	}
}

// Forget удаляет состояние записи, ушедшей из ленты.
func (s *Store) Forget(activityID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgetLocked(activityID)
}

func (s *Store) forgetLocked(activityID int64) {
	for _, comment := range s.comments[activityID] {
		delete(s.commentLikes, comment.ID)
		for _, reply := range comment.Replies {
			delete(s.commentLikes, reply.ID)
		}
	}
	delete(s.activities, activityID)
	delete(s.comments, activityID)
}

// Reseed приводит состояния к свежему серверному снапшоту после
// перечитывания ленты. Записи, ушедшие из видимого набора, забываются;
// у оставшихся состояние перечитывается из снапшота, кроме записей с
// незавершённым переключением: их значения доустановит сам ответ.
func (s *Store) Reseed(ctx context.Context, activities []domain.Activity) {
	fallback := s.bookmarkFallback(ctx)

	visible := make(map[int64]bool, len(activities))
	for _, activity := range activities {
		visible[activity.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.activities {
		if !visible[id] {
			s.forgetLocked(id)
		}
	}
	for _, activity := range activities {
		st, ok := s.activities[activity.ID]
		if !ok {
			s.activities[activity.ID] = &activityState{
				liked:         activity.UserLiked,
				likesCount:    activity.LikesCount,
				bookmarked:    activity.Bookmarked || fallback[activity.ID],
				commentsCount: activity.CommentsCount,
			}
			continue
		}
		if st.likeInFlight || st.bookmarkInFlight {
			continue
		}
		st.liked = activity.UserLiked
		st.likesCount = activity.LikesCount
		st.bookmarked = activity.Bookmarked || fallback[activity.ID]
		st.commentsCount = activity.CommentsCount
	}
}

// State возвращает текущее состояние вовлечённости записи.
func (s *Store) State(activityID int64) (domain.EngagementState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.activities[activityID]
	if !ok {
		return domain.EngagementState{}, false
	}
	return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount, Bookmarked: st.bookmarked}, true
}

// CommentState возвращает состояние лайка комментария.
func (s *Store) CommentState(commentID int64) (domain.EngagementState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.commentLikes[commentID]
	if !ok {
		return domain.EngagementState{}, false
	}
	return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount}, true
}

// Comments возвращает локальный список комментариев записи.
func (s *Store) Comments(activityID int64) []domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	comments := make([]domain.Comment, len(s.comments[activityID]))
	copy(comments, s.comments[activityID])
	return comments
}

// CommentsCount возвращает локальный счётчик комментариев записи.
func (s *Store) CommentsCount(activityID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.activities[activityID]; ok {
		return st.commentsCount
	}
	return 0
}

// ToggleLike оптимистично переключает лайк записи и сверяет результат
// с ответом бэкенда. При ошибке состояние откатывается к снапшоту до
// переключения; устаревший ответ молча отбрасывается.
func (s *Store) ToggleLike(ctx context.Context, activityID int64) (domain.EngagementState, error) {
	if !s.auth.Authenticated() {
		return domain.EngagementState{}, domain.ErrAuthRequired
	}

	s.mu.Lock()
	st, ok := s.activities[activityID]
	if !ok {
		s.mu.Unlock()
		return domain.EngagementState{}, fmt.Errorf("запись %d: %w", activityID, domain.ErrNotFound)
	}
	prevLiked, prevCount := st.liked, st.likesCount
	wasLiked := st.liked
	st.likeVer++
	st.likeInFlight = true
	ver := st.likeVer
	if wasLiked {
		st.liked = false
		st.likesCount--
	} else {
		st.liked = true
		st.likesCount++
	}
	s.mu.Unlock()
	metrics.EngagementToggles.WithLabelValues("activity_like").Inc()

	var result domain.LikeResult
	var err error
	if wasLiked {
		result, err = s.api.UnlikeActivity(ctx, activityID)
	} else {
		result, err = s.api.LikeActivity(ctx, activityID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.likeVer != ver {
		metrics.StaleResponses.Inc()
		return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount, Bookmarked: st.bookmarked}, nil
	}
	st.likeInFlight = false
	if err != nil {
		st.liked = prevLiked
		st.likesCount = prevCount
		metrics.EngagementRollbacks.WithLabelValues("activity_like").Inc()
		return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount, Bookmarked: st.bookmarked},
			fmt.Errorf("переключение лайка: %w", err)
	}
	// Авторитетные значения: счётчик мог измениться на сервере
	// между оптимистичным переключением и ответом.
	st.liked = result.Liked
	st.likesCount = result.LikesCount
	return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount, Bookmarked: st.bookmarked}, nil
}

// ToggleBookmark оптимистично переключает закладку записи с тем же
// контрактом отката, что и ToggleLike. Успешный результат зеркалится
// в запасной список закладок в кэше.
func (s *Store) ToggleBookmark(ctx context.Context, activityID int64) (domain.EngagementState, error) {
	if !s.auth.Authenticated() {
		return domain.EngagementState{}, domain.ErrAuthRequired
	}

	s.mu.Lock()
	st, ok := s.activities[activityID]
	if !ok {
		s.mu.Unlock()
		return domain.EngagementState{}, fmt.Errorf("запись %d: %w", activityID, domain.ErrNotFound)
	}
	prev := st.bookmarked
	wasBookmarked := st.bookmarked
	st.bookmarkVer++
	st.bookmarkInFlight = true
	ver := st.bookmarkVer
	st.bookmarked = !st.bookmarked
	s.mu.Unlock()
	metrics.EngagementToggles.WithLabelValues("bookmark").Inc()

	var result domain.BookmarkResult
	var err error
	if wasBookmarked {
		result, err = s.api.UnbookmarkActivity(ctx, activityID)
	} else {
		result, err = s.api.BookmarkActivity(ctx, activityID)
	}

	s.mu.Lock()
	if st.bookmarkVer != ver {
		metrics.StaleResponses.Inc()
		state := domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount, Bookmarked: st.bookmarked}
		s.mu.Unlock()
		return state, nil
	}
	st.bookmarkInFlight = false
	if err != nil {
		st.bookmarked = prev
		metrics.EngagementRollbacks.WithLabelValues("bookmark").Inc()
		state := domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount, Bookmarked: st.bookmarked}
		s.mu.Unlock()
		return state, fmt.Errorf("переключение закладки: %w", err)
	}
	st.bookmarked = result.Bookmarked
	state := domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount, Bookmarked: st.bookmarked}
	s.mu.Unlock()

	s.persistBookmarks(ctx)
	return state, nil
}

// ToggleCommentLike — контракт ToggleLike в границах комментария.
func (s *Store) ToggleCommentLike(ctx context.Context, commentID int64) (domain.EngagementState, error) {
	if !s.auth.Authenticated() {
		return domain.EngagementState{}, domain.ErrAuthRequired
	}

	s.mu.Lock()
	st, ok := s.commentLikes[commentID]
	if !ok {
		s.mu.Unlock()
		return domain.EngagementState{}, fmt.Errorf("комментарий %d: %w", commentID, domain.ErrNotFound)
	}
	prevLiked, prevCount := st.liked, st.likesCount
	wasLiked := st.liked
	st.ver++
	st.inFlight = true
	ver := st.ver
	if wasLiked {
		st.liked = false
		st.likesCount--
	} else {
		st.liked = true
		st.likesCount++
	}
	s.mu.Unlock()
	metrics.EngagementToggles.WithLabelValues("comment_like").Inc()

	var result domain.LikeResult
	var err error
	if wasLiked {
		result, err = s.api.UnlikeComment(ctx, commentID)
	} else {
		result, err = s.api.LikeComment(ctx, commentID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ver != ver {
		metrics.StaleResponses.Inc()
		return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount}, nil
	}
	st.inFlight = false
	if err != nil {
		st.liked = prevLiked
		st.likesCount = prevCount
		metrics.EngagementRollbacks.WithLabelValues("comment_like").Inc()
		return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount},
			fmt.Errorf("переключение лайка комментария: %w", err)
	}
	st.liked = result.Liked
	st.likesCount = result.LikesCount
	return domain.EngagementState{Liked: st.liked, LikesCount: st.likesCount}, nil
}

// LoadComments загружает комментарии записи и заводит состояния
// лайков для них и их ответов.
func (s *Store) LoadComments(ctx context.Context, activityID int64) ([]domain.Comment, error) {
	comments, err := s.api.ListComments(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("загрузка комментариев: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCommentsLocked(activityID, comments)
	return comments, nil
}

// SubmitComment создаёт комментарий и перечитывает список с сервера.
// Локальной оптимистичной вставки нет: временный id неизбежно
// разойдётся с серверным.
func (s *Store) SubmitComment(ctx context.Context, activityID int64, text string, parentID *int64) ([]domain.Comment, error) {
	if !s.auth.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.ErrEmptyContent
	}

	if _, err := s.api.CreateComment(ctx, activityID, trimmed, parentID); err != nil {
		return nil, fmt.Errorf("создание комментария: %w", err)
	}

	comments, err := s.api.ListComments(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("перечитывание комментариев: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCommentsLocked(activityID, comments)
	if st, ok := s.activities[activityID]; ok {
		st.commentsCount++
	}
	return comments, nil
}

// DeleteComment удаляет комментарий. Ответ 404 означает, что
// комментарий уже удалён, и считается успехом.
func (s *Store) DeleteComment(ctx context.Context, activityID, commentID int64) error {
	if !s.auth.Authenticated() {
		return domain.ErrAuthRequired
	}

	if err := s.api.DeleteComment(ctx, commentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("удаление комментария: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	comments := s.comments[activityID]
	for i := range comments {
		if comments[i].ID == commentID {
			comments = append(comments[:i], comments[i+1:]...)
			removed = true
			break
		}
		for j, reply := range comments[i].Replies {
			if reply.ID == commentID {
				comments[i].Replies = append(comments[i].Replies[:j], comments[i].Replies[j+1:]...)
				removed = true
				break
			}
		}
		if removed {
			break
		}
	}
	if removed {
		s.comments[activityID] = comments
		delete(s.commentLikes, commentID)
		if st, ok := s.activities[activityID]; ok && st.commentsCount > 0 {
			st.commentsCount--
		}
	}
	return nil
}

func (s *Store) storeCommentsLocked(activityID int64, comments []domain.Comment) {
	s.comments[activityID] = comments
	for _, comment := range comments {
		s.seedCommentLocked(comment)
		for _, reply := range comment.Replies {
			s.seedCommentLocked(reply)
		}
	}
}

func (s *Store) seedCommentLocked(comment domain.Comment) {
	st, ok := s.commentLikes[comment.ID]
	if !ok {
		s.commentLikes[comment.ID] = &commentState{liked: comment.UserLiked, likesCount: comment.LikesCount}
		return
	}
	if st.inFlight {
		return
	}
	st.liked = comment.UserLiked
	st.likesCount = comment.LikesCount
}

func (s *Store) bookmarkFallback(ctx context.Context) map[int64]bool {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.bookmarkKey)
	if err != nil {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	fallback := make(map[int64]bool, len(ids))
	for _, id := range ids {
		fallback[id] = true
	}
	return fallback
}

func (s *Store) persistBookmarks(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	var ids []int64
	for id, st := range s.activities {
		if st.bookmarked {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	encoded, err := json.Marshal(ids)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, s.bookmarkKey, encoded, s.bookmarkTTL)
}
