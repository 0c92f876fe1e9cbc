package anipass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"anipass-feed/internal/domain"
	"anipass-feed/internal/infra/metrics"
)

// Client реализует порты domain.FeedAPI, domain.NotificationAPI и
// domain.ContentAPI поверх REST API бэкенда.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithToken задаёт bearer-токен владельца сессии.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ListActivities возвращает страницу ленты для фильтра.
func (c *Client) ListActivities(ctx context.Context, filter string, offset, limit int) (domain.FeedPage, error) {
	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	var page domain.FeedPage
	endpoint := "/api/activities?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, "list_activities", endpoint, nil, &page); err != nil {
		return domain.FeedPage{}, err
	}
	return page, nil
}

// LikeActivity ставит лайк записи.
func (c *Client) LikeActivity(ctx context.Context, activityID int64) (domain.LikeResult, error) {
	return c.toggleLike(ctx, http.MethodPost, "like_activity", fmt.Sprintf("/api/activities/%d/like", activityID))
}

// UnlikeActivity снимает лайк с записи.
func (c *Client) UnlikeActivity(ctx context.Context, activityID int64) (domain.LikeResult, error) {
	return c.toggleLike(ctx, http.MethodDelete, "unlike_activity", fmt.Sprintf("/api/activities/%d/like", activityID))
}

// BookmarkActivity добавляет запись в закладки.
func (c *Client) BookmarkActivity(ctx context.Context, activityID int64) (domain.BookmarkResult, error) {
	return c.toggleBookmark(ctx, http.MethodPost, "bookmark_activity", fmt.Sprintf("/api/activities/%d/bookmark", activityID))
}

// UnbookmarkActivity убирает запись из закладок.
func (c *Client) UnbookmarkActivity(ctx context.Context, activityID int64) (domain.BookmarkResult, error) {
	return c.toggleBookmark(ctx, http.MethodDelete, "unbookmark_activity", fmt.Sprintf("/api/activities/%d/bookmark", activityID))
}

// ListComments возвращает комментарии записи с ответами,
// вложенными на один уровень.
func (c *Client) ListComments(ctx context.Context, activityID int64) ([]domain.Comment, error) {
	var comments []domain.Comment
	endpoint := fmt.Sprintf("/api/activities/%d/comments", activityID)
	if err := c.do(ctx, http.MethodGet, "list_comments", endpoint, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment создаёт комментарий или ответ.
func (c *Client) CreateComment(ctx context.Context, activityID int64, content string, parentID *int64) (domain.Comment, error) {
	payload := map[string]any{"content": content}
	if parentID != nil {
		payload["parent_comment_id"] = *parentID
	}
	var comment domain.Comment
	endpoint := fmt.Sprintf("/api/activities/%d/comments", activityID)
	if err := c.do(ctx, http.MethodPost, "create_comment", endpoint, payload, &comment); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

// DeleteComment удаляет комментарий.
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.do(ctx, http.MethodDelete, "delete_comment", fmt.Sprintf("/api/comments/%d", commentID), nil, nil)
}

// LikeComment ставит лайк комментарию.
func (c *Client) LikeComment(ctx context.Context, commentID int64) (domain.LikeResult, error) {
	return c.toggleLike(ctx, http.MethodPost, "like_comment", fmt.Sprintf("/api/comments/%d/like", commentID))
}

// UnlikeComment снимает лайк с комментария.
func (c *Client) UnlikeComment(ctx context.Context, commentID int64) (domain.LikeResult, error) {
	return c.toggleLike(ctx, http.MethodDelete, "unlike_comment", fmt.Sprintf("/api/comments/%d/like", commentID))
}

// ListNotifications возвращает уведомления пользователя.
func (c *Client) ListNotifications(ctx context.Context, limit, offset int) ([]domain.Notification, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	var resp struct {
		Items []domain.Notification `json:"items"`
	}
	endpoint := "/api/notifications?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, "list_notifications", endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// MarkNotificationsRead помечает все уведомления прочитанными.
func (c *Client) MarkNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "mark_notifications_read", "/api/notifications/read", nil, nil)
}

// CreatePost публикует свободный пост.
func (c *Client) CreatePost(ctx context.Context, content string) (domain.Activity, error) {
	var activity domain.Activity
	payload := map[string]any{"content": content}
	if err := c.do(ctx, http.MethodPost, "create_post", "/api/posts", payload, &activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// DeletePost удаляет пост.
func (c *Client) DeletePost(ctx context.Context, postID int64) error {
	return c.do(ctx, http.MethodDelete, "delete_post", fmt.Sprintf("/api/posts/%d", postID), nil, nil)
}

// DeleteActivity удаляет запись ленты напрямую.
func (c *Client) DeleteActivity(ctx context.Context, activityID int64) error {
	return c.do(ctx, http.MethodDelete, "delete_activity", fmt.Sprintf("/api/activities/%d", activityID), nil, nil)
}

// RateAnime ставит или обновляет оценку тайтла.
func (c *Client) RateAnime(ctx context.Context, animeID int64, rating float64) error {
	payload := map[string]any{"rating": rating, "status": "RATED"}
	return c.do(ctx, http.MethodPut, "rate_anime", fmt.Sprintf("/api/anime/%d/rating", animeID), payload, nil)
}

// RateCharacter ставит или обновляет оценку персонажа.
func (c *Client) RateCharacter(ctx context.Context, characterID int64, rating float64) error {
	payload := map[string]any{"rating": rating}
	return c.do(ctx, http.MethodPut, "rate_character", fmt.Sprintf("/api/characters/%d/rating", characterID), payload, nil)
}

// DeleteAnimeRating удаляет оценку тайтла вместе с рецензией.
func (c *Client) DeleteAnimeRating(ctx context.Context, animeID int64) error {
	return c.do(ctx, http.MethodDelete, "delete_anime_rating", fmt.Sprintf("/api/anime/%d/rating", animeID), nil, nil)
}

// DeleteCharacterRating удаляет оценку персонажа вместе с рецензией.
func (c *Client) DeleteCharacterRating(ctx context.Context, characterID int64) error {
	return c.do(ctx, http.MethodDelete, "delete_character_rating", fmt.Sprintf("/api/characters/%d/rating", characterID), nil, nil)
}

// CreateAnimeReview создаёт рецензию на тайтл.
func (c *Client) CreateAnimeReview(ctx context.Context, animeID int64, draft domain.ReviewDraft) error {
	payload := map[string]any{
		"anime_id":   animeID,
		"rating":     draft.Rating,
		"content":    draft.Content,
		"is_spoiler": draft.IsSpoiler,
	}
	return c.do(ctx, http.MethodPost, "create_anime_review", "/api/reviews", payload, nil)
}

// CreateCharacterReview создаёт рецензию на персонажа.
func (c *Client) CreateCharacterReview(ctx context.Context, characterID int64, draft domain.ReviewDraft) error {
	payload := map[string]any{
		"character_id": characterID,
		"rating":       draft.Rating,
		"content":      draft.Content,
		"is_spoiler":   draft.IsSpoiler,
	}
	return c.do(ctx, http.MethodPost, "create_character_review", "/api/character-reviews", payload, nil)
}

// GetMyAnimeReview возвращает рецензию текущего пользователя на тайтл.
func (c *Client) GetMyAnimeReview(ctx context.Context, animeID int64) (domain.Review, error) {
	var review domain.Review
	endpoint := fmt.Sprintf("/api/anime/%d/reviews/me", animeID)
	if err := c.do(ctx, http.MethodGet, "get_my_anime_review", endpoint, nil, &review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// GetMyCharacterReview возвращает рецензию текущего пользователя на персонажа.
func (c *Client) GetMyCharacterReview(ctx context.Context, characterID int64) (domain.Review, error) {
	var review domain.Review
	endpoint := fmt.Sprintf("/api/characters/%d/reviews/me", characterID)
	if err := c.do(ctx, http.MethodGet, "get_my_character_review", endpoint, nil, &review); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// UpdateAnimeReview обновляет рецензию на тайтл.
func (c *Client) UpdateAnimeReview(ctx context.Context, reviewID int64, draft domain.ReviewDraft) error {
	payload := map[string]any{
		"rating":     draft.Rating,
		"content":    draft.Content,
		"is_spoiler": draft.IsSpoiler,
	}
	return c.do(ctx, http.MethodPut, "update_anime_review", fmt.Sprintf("/api/reviews/%d", reviewID), payload, nil)
}

// UpdateCharacterReview обновляет рецензию на персонажа.
func (c *Client) UpdateCharacterReview(ctx context.Context, reviewID int64, draft domain.ReviewDraft) error {
	payload := map[string]any{
		"rating":     draft.Rating,
		"content":    draft.Content,
		"is_spoiler": draft.IsSpoiler,
	}
	return c.do(ctx, http.MethodPut, "update_character_review", fmt.Sprintf("/api/character-reviews/%d", reviewID), payload, nil)
}

// DeleteMyAnimeReview удаляет рецензию, сохраняя оценку.
func (c *Client) DeleteMyAnimeReview(ctx context.Context, animeID int64) error {
	return c.do(ctx, http.MethodDelete, "delete_my_anime_review", fmt.Sprintf("/api/anime/%d/reviews/me", animeID), nil, nil)
}

// DeleteMyCharacterReview удаляет рецензию, сохраняя оценку.
func (c *Client) DeleteMyCharacterReview(ctx context.Context, characterID int64) error {
	return c.do(ctx, http.MethodDelete, "delete_my_character_review", fmt.Sprintf("/api/characters/%d/reviews/me", characterID), nil, nil)
}

func (c *Client) toggleLike(ctx context.Context, method, operation, endpoint string) (domain.LikeResult, error) {
	var result domain.LikeResult
	if err := c.do(ctx, method, operation, endpoint, nil, &result); err != nil {
		return domain.LikeResult{}, err
	}
	return result, nil
}

func (c *Client) toggleBookmark(ctx context.Context, method, operation, endpoint string) (domain.BookmarkResult, error) {
	var result domain.BookmarkResult
	if err := c.do(ctx, method, operation, endpoint, nil, &result); err != nil {
		return domain.BookmarkResult{}, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, operation, endpoint string, payload, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveBackendRequest(operation, start, err) }()

	ref, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	target := c.baseURL.ResolveReference(ref)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthRequired
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 400:
		var apiErr apiError
		data, _ := io.ReadAll(resp.Body)
		if unmarshalErr := json.Unmarshal(data, &apiErr); unmarshalErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", operation, apiErr.Error)
		}
		return fmt.Errorf("%s: status %d", operation, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
