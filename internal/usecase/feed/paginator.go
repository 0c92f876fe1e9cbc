package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"anipass-feed/internal/domain"
	"anipass-feed/internal/infra/metrics"
)

// Paginator держит в памяти упорядоченный список записей ленты для
// текущего фильтра и дотягивает страницы по мере необходимости.
// Порядок задаётся ответами бэкенда и на клиенте не пересортировывается.
type Paginator struct {
	api      domain.FeedAPI
	cache    domain.Cache
	cacheKey string
	cacheTTL time.Duration
	pageSize int

	mu       sync.Mutex
	filter   string
	items    []domain.Activity
	offset   int
	hasMore  bool
	inFlight bool
	gen      uint64
}

// NewPaginator создаёт пагинатор. Кэш опционален: при nil загруженный
// список не кэшируется и запасного списка при отказе бэкенда нет.
func NewPaginator(api domain.FeedAPI, cache domain.Cache, cacheKey string, cacheTTL time.Duration, pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = 8
	}
	return &Paginator{
		api:      api,
		cache:    cache,
		cacheKey: cacheKey,
		cacheTTL: cacheTTL,
		pageSize: pageSize,
		hasMore:  true,
	}
}

// Reset очищает список и курсор и загружает первую страницу фильтра.
// Повторный вызов с тем же фильтром при уже идущей загрузке не
// перезапускает её.
func (p *Paginator) Reset(ctx context.Context, filter string) error {
	p.mu.Lock()
	if p.inFlight && p.filter == filter && p.offset == 0 && len(p.items) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.filter = filter
	p.items = nil
	p.offset = 0
	p.hasMore = true
	p.inFlight = true
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	return p.fetch(ctx, filter, 0, gen)
}

// LoadMore дотягивает следующую страницу. Ничего не делает, если
// загрузка уже идёт или страницы закончились.
func (p *Paginator) LoadMore(ctx context.Context) error {
	p.mu.Lock()
	if p.inFlight || !p.hasMore {
		p.mu.Unlock()
		return nil
	}
	filter := p.filter
	offset := p.offset
	gen := p.gen
	p.inFlight = true
	p.mu.Unlock()

	return p.fetch(ctx, filter, offset, gen)
}

// RemoveActivity немедленно убирает запись из списка без обращения
// к сети. Курсор и hasMore не меняются.
func (p *Paginator) RemoveActivity(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, activity := range p.items {
		if activity.ID == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return
		}
	}
}

// Items возвращает копию текущего списка в порядке бэкенда.
func (p *Paginator) Items() []domain.Activity {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]domain.Activity, len(p.items))
	copy(items, p.items)
	return items
}

// HasMore сообщает, остались ли незагруженные страницы.
func (p *Paginator) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Filter возвращает текущий фильтр ленты.
func (p *Paginator) Filter() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// Loading сообщает, идёт ли сейчас загрузка страницы.
func (p *Paginator) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

func (p *Paginator) fetch(ctx context.Context, filter string, offset int, gen uint64) error {
	page, err := p.api.ListActivities(ctx, filter, offset, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	// Сброс с новым фильтром во время загрузки делает ответ неактуальным.
	if p.gen != gen {
		return nil
	}
	p.inFlight = false

	if err != nil {
		metrics.FeedPageErrors.Inc()
		// Первая страница при недоступном бэкенде подменяется последним
		// закэшированным списком этого фильтра. Догрузка из него
		// запрещена: курсор стал бы рассинхронизирован с сервером.
		if offset == 0 && len(p.items) == 0 {
			if cached, ok := p.cachedItems(ctx, filter); ok {
				p.items = cached
				p.offset = len(cached)
				p.hasMore = false
				return nil
			}
		}
		// Курсор не сдвигается: ту же страницу можно повторить.
		return fmt.Errorf("загрузка страницы ленты: %w", err)
	}

	p.items = append(p.items, page.Items...)
	p.offset = offset + len(page.Items)
	p.hasMore = page.HasMore && len(page.Items) == p.pageSize
	metrics.FeedPagesLoaded.WithLabelValues(filter).Inc()

	if p.cache != nil {
		if encoded, marshalErr := json.Marshal(p.items); marshalErr == nil {
			_ = p.cache.Set(ctx, p.pageCacheKey(filter), encoded, p.cacheTTL)
		}
	}
	return nil
}

func (p *Paginator) cachedItems(ctx context.Context, filter string) ([]domain.Activity, bool) {
	if p.cache == nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, p.pageCacheKey(filter))
	if err != nil {
		return nil, false
	}
	var items []domain.Activity
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	return items, true
}

func (p *Paginator) pageCacheKey(filter string) string {
	return fmt.Sprintf("feed:%s:%s", p.cacheKey, filter)
}
