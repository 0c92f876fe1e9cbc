package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"anipass-feed/internal/domain"
	"anipass-feed/internal/infra/cache"
)

type scriptedAPI struct {
	pages [][]domain.Activity
	calls int
	fail  bool
}

func (s *scriptedAPI) ListActivities(_ context.Context, _ string, offset, limit int) (domain.FeedPage, error) {
	s.calls++
	if s.fail {
		return domain.FeedPage{}, errors.New("backend down")
	}
	var items []domain.Activity
	for _, page := range s.pages {
		items = append(items, page...)
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return domain.FeedPage{Items: items[offset:end], HasMore: end < len(items)}, nil
}

func (s *scriptedAPI) LikeActivity(context.Context, int64) (domain.LikeResult, error) {
	return domain.LikeResult{}, nil
}
func (s *scriptedAPI) UnlikeActivity(context.Context, int64) (domain.LikeResult, error) {
	return domain.LikeResult{}, nil
}
func (s *scriptedAPI) BookmarkActivity(context.Context, int64) (domain.BookmarkResult, error) {
	return domain.BookmarkResult{}, nil
}
func (s *scriptedAPI) UnbookmarkActivity(context.Context, int64) (domain.BookmarkResult, error) {
	return domain.BookmarkResult{}, nil
}
func (s *scriptedAPI) ListComments(context.Context, int64) ([]domain.Comment, error) {
	return nil, nil
}
func (s *scriptedAPI) CreateComment(context.Context, int64, string, *int64) (domain.Comment, error) {
	return domain.Comment{}, nil
}
func (s *scriptedAPI) DeleteComment(context.Context, int64) error { return nil }
func (s *scriptedAPI) LikeComment(context.Context, int64) (domain.LikeResult, error) {
	return domain.LikeResult{}, nil
}
func (s *scriptedAPI) UnlikeComment(context.Context, int64) (domain.LikeResult, error) {
	return domain.LikeResult{}, nil
}

func activities(ids ...int64) []domain.Activity {
	result := make([]domain.Activity, 0, len(ids))
	for _, id := range ids {
		result = append(result, domain.Activity{ID: id, ActivityType: domain.ActivityAnimeRating})
	}
	return result
}

func TestLoadMoreCollectsAllPages(t *testing.T) {
	api := &scriptedAPI{pages: [][]domain.Activity{
		activities(1, 2, 3, 4, 5, 6, 7, 8),
		activities(9, 10, 11, 12, 13, 14, 15, 16),
		activities(17, 18, 19, 20),
	}}
	p := NewPaginator(api, nil, "s1", 0, 8)

	if err := p.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for p.HasMore() {
		if err := p.LoadMore(context.Background()); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}

	items := p.Items()
	if len(items) != 20 {
		t.Fatalf("ожидали 20 записей, получили %d", len(items))
	}
	seen := make(map[int64]bool)
	for i, item := range items {
		if seen[item.ID] {
			t.Fatalf("дубликат записи %d", item.ID)
		}
		seen[item.ID] = true
		if item.ID != int64(i+1) {
			t.Fatalf("нарушен порядок бэкенда: позиция %d содержит %d", i, item.ID)
		}
	}
	if p.HasMore() {
		t.Fatalf("ожидали hasMore=false")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	api := &scriptedAPI{pages: [][]domain.Activity{activities(1, 2, 3)}}
	p := NewPaginator(api, nil, "s1", 0, 8)

	if err := p.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := p.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(p.Items()) != 3 {
		t.Fatalf("ожидали 3 записи после повторного сброса, получили %d", len(p.Items()))
	}
}

func TestFailedFetchKeepsCursor(t *testing.T) {
	api := &scriptedAPI{pages: [][]domain.Activity{
		activities(1, 2, 3, 4, 5, 6, 7, 8),
		activities(9, 10),
	}}
	p := NewPaginator(api, nil, "s1", 0, 8)

	if err := p.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	api.fail = true
	if err := p.LoadMore(context.Background()); err == nil {
		t.Fatalf("ожидали ошибку загрузки")
	}
	if len(p.Items()) != 8 {
		t.Fatalf("список изменился после неудачной загрузки: %d", len(p.Items()))
	}

	// Та же страница перечитывается после восстановления бэкенда.
	api.fail = false
	if err := p.LoadMore(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(p.Items()) != 10 {
		t.Fatalf("ожидали 10 записей, получили %d", len(p.Items()))
	}
}

func TestLoadMoreStopsAfterExhaustion(t *testing.T) {
	api := &scriptedAPI{pages: [][]domain.Activity{activities(1, 2)}}
	p := NewPaginator(api, nil, "s1", 0, 8)

	if err := p.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	calls := api.calls
	if err := p.LoadMore(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if api.calls != calls {
		t.Fatalf("ожидали no-op после исчерпания страниц")
	}
}

func TestResetServesCachedListWhenBackendDown(t *testing.T) {
	memory := cache.NewMemory()
	api := &scriptedAPI{pages: [][]domain.Activity{activities(1, 2, 3)}}

	p := NewPaginator(api, memory, "s1", time.Minute, 8)
	if err := p.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Бэкенд упал; новая сессия с тем же кэшем получает последний
	// загруженный список вместо ошибки.
	api.fail = true
	fresh := NewPaginator(api, memory, "s1", time.Minute, 8)
	if err := fresh.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("ожидали запасной список из кэша, получили ошибку: %v", err)
	}
	items := fresh.Items()
	if len(items) != 3 || items[0].ID != 1 {
		t.Fatalf("неожиданный запасной список: %+v", items)
	}
	if fresh.HasMore() {
		t.Fatalf("догрузка из устаревшего списка должна быть запрещена")
	}
}

func TestResetSurfacesErrorWithoutCache(t *testing.T) {
	api := &scriptedAPI{pages: [][]domain.Activity{activities(1)}, fail: true}
	p := NewPaginator(api, nil, "s1", 0, 8)

	if err := p.Reset(context.Background(), "all"); err == nil {
		t.Fatalf("ожидали ошибку загрузки")
	}
	if len(p.Items()) != 0 {
		t.Fatalf("список не должен заполняться без кэша")
	}
}

func TestRemoveActivity(t *testing.T) {
	api := &scriptedAPI{pages: [][]domain.Activity{activities(1, 2, 3)}}
	p := NewPaginator(api, nil, "s1", 0, 8)

	if err := p.Reset(context.Background(), "all"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	calls := api.calls
	p.RemoveActivity(2)

	items := p.Items()
	if len(items) != 2 || items[0].ID != 1 || items[1].ID != 3 {
		t.Fatalf("неожиданный список после удаления: %+v", items)
	}
	if api.calls != calls {
		t.Fatalf("удаление не должно ходить в сеть")
	}
}
