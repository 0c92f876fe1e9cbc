package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"anipass-feed/internal/domain"
	"anipass-feed/internal/usecase/images"
	"anipass-feed/internal/usecase/session"
)

type testBackend struct {
	domain.FeedAPI
	domain.NotificationAPI
	domain.ContentAPI
}

func (testBackend) ListActivities(_ context.Context, _ string, offset, limit int) (domain.FeedPage, error) {
	if offset > 0 {
		return domain.FeedPage{}, nil
	}
	return domain.FeedPage{Items: []domain.Activity{
		{ID: 1, ActivityType: domain.ActivityAnimeRating, LikesCount: 10},
		{ID: 2, ActivityType: domain.ActivityUserPost},
	}, HasMore: false}, nil
}

func (testBackend) LikeActivity(context.Context, int64) (domain.LikeResult, error) {
	return domain.LikeResult{Liked: true, LikesCount: 12}, nil
}

func newTestServer(t *testing.T, backend session.Backend) *httptest.Server {
	t.Helper()
	factory := func(string) (session.Backend, error) { return backend, nil }
	manager := session.NewManager(factory, nil, session.Config{PageSize: 8}, zerolog.Nop())
	handler := NewHandler(manager, images.NewResolver("https://api.test", "https://img.test"), zerolog.Nop())

	router := chi.NewRouter()
	handler.Routes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func createSession(t *testing.T, server *httptest.Server, token string) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/sessions", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ожидали 201, получили %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return body["session_id"]
}

func TestFeedFlow(t *testing.T) {
	server := newTestServer(t, testBackend{})
	sessionID := createSession(t, server, "token")

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/feed?filter=all&context=feed", nil)
	req.Header.Set("X-Session-ID", sessionID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", resp.StatusCode)
	}

	var feed struct {
		Items   []domain.Activity  `json:"items"`
		HasMore bool               `json:"has_more"`
		Card    session.CardConfig `json:"card"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(feed.Items) != 2 || feed.HasMore {
		t.Fatalf("неожиданная лента: %+v", feed)
	}
	if !feed.Card.ShowComments {
		t.Fatalf("ожидали пресет ленты")
	}
}

func TestToggleLikeThroughGateway(t *testing.T) {
	server := newTestServer(t, testBackend{})
	sessionID := createSession(t, server, "token")

	// Лента загружается, чтобы завести состояние вовлечённости.
	feedReq, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/feed", nil)
	feedReq.Header.Set("X-Session-ID", sessionID)
	feedResp, err := http.DefaultClient.Do(feedReq)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	feedResp.Body.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/activities/1/like", bytes.NewReader(nil))
	req.Header.Set("X-Session-ID", sessionID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", resp.StatusCode)
	}

	var state domain.EngagementState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !state.Liked || state.LikesCount != 12 {
		t.Fatalf("ожидали авторитетные значения сервера, получили %+v", state)
	}
}

func TestLikeWithoutAuthIsRejected(t *testing.T) {
	server := newTestServer(t, testBackend{})
	sessionID := createSession(t, server, "")

	feedReq, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/feed", nil)
	feedReq.Header.Set("X-Session-ID", sessionID)
	feedResp, err := http.DefaultClient.Do(feedReq)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	feedResp.Body.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/activities/1/like", nil)
	req.Header.Set("X-Session-ID", sessionID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("ожидали 401, получили %d", resp.StatusCode)
	}
}

type countingBackend struct {
	testBackend
	mu    sync.Mutex
	likes int
}

func (b *countingBackend) setLikes(n int) {
	b.mu.Lock()
	b.likes = n
	b.mu.Unlock()
}

func (b *countingBackend) ListActivities(_ context.Context, _ string, offset, _ int) (domain.FeedPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset > 0 {
		return domain.FeedPage{}, nil
	}
	return domain.FeedPage{Items: []domain.Activity{
		{ID: 1, ActivityType: domain.ActivityAnimeRating, LikesCount: b.likes},
	}}, nil
}

func TestFilterChangeRefreshesEngagementSnapshot(t *testing.T) {
	backend := &countingBackend{likes: 5}
	server := newTestServer(t, backend)
	sessionID := createSession(t, server, "token")

	fetchLikes := func(filter string) int {
		t.Helper()
		req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/feed?filter="+filter, nil)
		req.Header.Set("X-Session-ID", sessionID)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		defer resp.Body.Close()
		var feed struct {
			Items []domain.Activity `json:"items"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if len(feed.Items) != 1 {
			t.Fatalf("ожидали одну запись, получили %d", len(feed.Items))
		}
		return feed.Items[0].LikesCount
	}

	if got := fetchLikes("all"); got != 5 {
		t.Fatalf("ожидали счётчик 5, получили %d", got)
	}

	// Счётчик изменился на сервере; смена фильтра перечитывает ленту
	// и должна показать свежий снапшот, а не первый увиденный.
	backend.setLikes(9)
	if got := fetchLikes("following"); got != 9 {
		t.Fatalf("после сброса ленты ожидали свежий серверный снапшот 9, получили %d", got)
	}
}

func TestUnknownSession(t *testing.T) {
	server := newTestServer(t, testBackend{})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/feed", nil)
	req.Header.Set("X-Session-ID", "nope")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ожидали 404, получили %d", resp.StatusCode)
	}
}

func TestResolveImagesEndpoint(t *testing.T) {
	server := newTestServer(t, testBackend{})

	resp, err := http.Get(server.URL + "/api/v1/images?kind=item&url=/images/characters/8485.jpg")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", resp.StatusCode)
	}

	var body struct {
		Candidates []string `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(body.Candidates) == 0 || body.Candidates[0] != "https://api.test/api/images/characters/8485.jpg" {
		t.Fatalf("неожиданные кандидаты: %v", body.Candidates)
	}
}
