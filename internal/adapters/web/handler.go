package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"anipass-feed/internal/domain"
	"anipass-feed/internal/usecase/content"
	"anipass-feed/internal/usecase/images"
	"anipass-feed/internal/usecase/session"
)

// Handler отдаёт HTTP-поверхность шлюза: сессии ленты, страницы,
// действия вовлечённости и вспомогательные резолверы.
type Handler struct {
	sessions *session.Manager
	resolver images.Resolver
	log      zerolog.Logger
}

// NewHandler создаёт обработчик.
func NewHandler(sessions *session.Manager, resolver images.Resolver, logger zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, resolver: resolver, log: logger}
}

// Routes монтирует маршруты шлюза.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/v1/sessions", h.createSession)
	r.Get("/api/v1/feed", h.feed)
	r.Post("/api/v1/feed/more", h.feedMore)
	r.Post("/api/v1/activities/{id}/like", h.toggleLike)
	r.Post("/api/v1/activities/{id}/bookmark", h.toggleBookmark)
	r.Post("/api/v1/comments/{id}/like", h.toggleCommentLike)
	r.Get("/api/v1/activities/{id}/comments", h.listComments)
	r.Post("/api/v1/activities/{id}/comments", h.createComment)
	r.Delete("/api/v1/activities/{id}/comments/{commentID}", h.deleteComment)
	r.Delete("/api/v1/activities/{id}", h.deleteActivity)
	r.Post("/api/v1/activities/{id}/edit", h.editActivity)
	r.Post("/api/v1/posts", h.createPost)
	r.Get("/api/v1/notifications", h.notifications)
	r.Get("/api/v1/images", h.resolveImages)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	sess, err := h.sessions.Create(token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

type feedResponse struct {
	Items   []domain.Activity  `json:"items"`
	HasMore bool               `json:"has_more"`
	Loading bool               `json:"loading"`
	Card    session.CardConfig `json:"card"`
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = "all"
	}

	if sess.Feed.Filter() != filter || len(sess.Feed.Items()) == 0 {
		if err := h.resetFeed(r.Context(), sess, filter); err != nil {
			h.writeError(w, err)
			return
		}
	} else {
		sess.Engagement.Seed(r.Context(), sess.Feed.Items())
	}

	items := sess.Feed.Items()
	writeJSON(w, http.StatusOK, feedResponse{
		Items:   h.overlay(sess, items),
		HasMore: sess.Feed.HasMore(),
		Loading: sess.Feed.Loading(),
		Card:    cardConfig(r),
	})
}

func (h *Handler) feedMore(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Feed.LoadMore(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	items := sess.Feed.Items()
	sess.Engagement.Seed(r.Context(), items)
	writeJSON(w, http.StatusOK, feedResponse{
		Items:   h.overlay(sess, items),
		HasMore: sess.Feed.HasMore(),
		Loading: sess.Feed.Loading(),
		Card:    cardConfig(r),
	})
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	state, err := sess.Engagement.ToggleLike(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	state, err := sess.Engagement.ToggleBookmark(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) toggleCommentLike(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	state, err := sess.Engagement.ToggleCommentLike(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	comments, err := sess.Engagement.LoadComments(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": comments})
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_comment_id"`
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	comments, err := sess.Engagement.SubmitComment(r.Context(), id, req.Content, req.ParentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":          comments,
		"comments_count": sess.Engagement.CommentsCount(id),
	})
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	activityID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	if err := sess.Engagement.DeleteComment(r.Context(), activityID, commentID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mode := content.DeleteMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = content.DeleteAll
	}

	var target *domain.Activity
	for _, activity := range sess.Feed.Items() {
		if activity.ID == id {
			found := activity
			target = &found
			break
		}
	}
	if target == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "activity not found"})
		return
	}

	// Оптимистичное удаление: запись исчезает до ответа бэкенда.
	sess.Feed.RemoveActivity(id)
	sess.Engagement.Forget(id)

	outcome, err := sess.Content.Delete(r.Context(), *target, mode)
	if err != nil {
		// Лента перечитывается, чтобы вернуть исходное состояние.
		if resetErr := h.resetFeed(r.Context(), sess, sess.Feed.Filter()); resetErr != nil {
			h.log.Error().Err(resetErr).Msg("не удалось перечитать ленту после ошибки удаления")
		}
		h.writeError(w, err)
		return
	}
	if outcome.NeedsRefresh {
		if err := h.resetFeed(r.Context(), sess, sess.Feed.Filter()); err != nil {
			h.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type editRequest struct {
	Mode      content.EditMode `json:"mode"`
	Rating    float64          `json:"rating"`
	Content   string           `json:"content"`
	IsSpoiler bool             `json:"is_spoiler"`
}

func (h *Handler) editActivity(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Mode == "" {
		req.Mode = content.EditReview
	}

	var target *domain.Activity
	for _, activity := range sess.Feed.Items() {
		if activity.ID == id {
			found := activity
			target = &found
			break
		}
	}
	if target == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "activity not found"})
		return
	}

	draft := domain.ReviewDraft{Rating: req.Rating, Content: req.Content, IsSpoiler: req.IsSpoiler}
	if err := sess.Content.SaveEdit(r.Context(), *target, req.Mode, draft); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.resetFeed(r.Context(), sess, sess.Feed.Filter()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createPostRequest struct {
	Content string `json:"content"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	activity, err := sess.Content.CreatePost(r.Context(), req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.resetFeed(r.Context(), sess, sess.Feed.Filter()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	grouped, err := sess.Notifications.Load(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	sess.Engagement.Seed(r.Context(), grouped)
	writeJSON(w, http.StatusOK, map[string]any{"items": h.overlay(sess, grouped)})
}

func (h *Handler) resolveImages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := images.Kind(query.Get("kind"))
	rawURL := query.Get("url")
	entityID, _ := strconv.ParseInt(query.Get("id"), 10, 64)
	candidates := h.resolver.Resolve(kind, rawURL, entityID)
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// resetFeed перечитывает ленту и приводит состояния вовлечённости к
// свежему серверному снапшоту: снимок одного фильтра не должен
// заслонять более новую правду сервера в другом.
func (h *Handler) resetFeed(ctx context.Context, sess *session.Session, filter string) error {
	if err := sess.Feed.Reset(ctx, filter); err != nil {
		return err
	}
	sess.Engagement.Reseed(ctx, sess.Feed.Items())
	return nil
}

// overlay накладывает локальное состояние вовлечённости на снапшоты
// записей, чтобы все потребители видели один источник правды.
func (h *Handler) overlay(sess *session.Session, activities []domain.Activity) []domain.Activity {
	result := make([]domain.Activity, len(activities))
	for i, activity := range activities {
		if state, ok := sess.Engagement.State(activity.ID); ok {
			activity.UserLiked = state.Liked
			activity.LikesCount = state.LikesCount
			activity.Bookmarked = state.Bookmarked
			activity.CommentsCount = sess.Engagement.CommentsCount(activity.ID)
		}
		result[i] = activity
	}
	return result
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id required"})
		return nil, false
	}
	sess, ok := h.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return nil, false
	}
	return sess, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "auth_required"})
	case errors.Is(err, domain.ErrEmptyContent):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty_content"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, domain.ErrUnknownActivity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_activity_type"})
	default:
		h.log.Error().Err(err).Msg("ошибка обращения к бэкенду")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backend_error"})
	}
}

func cardConfig(r *http.Request) session.CardConfig {
	query := r.URL.Query()
	preset := session.PresetFor(query.Get("context"))
	var overrides session.CardOverrides
	if raw := query.Get("show_comments"); raw != "" {
		value := raw == "true"
		overrides.ShowComments = &value
	}
	if raw := query.Get("show_bookmark"); raw != "" {
		value := raw == "true"
		overrides.ShowBookmark = &value
	}
	if raw := query.Get("comment_limit"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			overrides.CommentLimit = &value
		}
	}
	return session.Merge(preset, overrides)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
