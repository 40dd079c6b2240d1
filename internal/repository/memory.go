package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/link-service/internal/models"
)

// MemoryStore keeps all state in process memory. It backs DSN-less runs and
// tests; it mirrors the Postgres store's behavior, including cascade deletes
// and the atomicity of IncrementAndAppendRedirect.
type MemoryStore struct {
	mu        sync.RWMutex
	links     map[int64]*models.Link
	stats     map[int64]*models.LinkStats
	redirects map[int64][]models.LinkRedirect
	byCode    map[string]int64
	nextID    int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:     make(map[int64]*models.Link),
		stats:     make(map[int64]*models.LinkStats),
		redirects: make(map[int64][]models.LinkRedirect),
		byCode:    make(map[string]int64),
		nextID:    1,
	}
}

func (m *MemoryStore) nextSeq() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MemoryStore) CreateLink(_ context.Context, userID int64, shortCode, targetURL string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[shortCode]; exists {
		return nil, ErrConflict
	}

	link := &models.Link{
		ID:        m.nextSeq(),
		UserID:    userID,
		ShortCode: shortCode,
		TargetURL: targetURL,
		CreatedAt: time.Now(),
	}

	stats := &models.LinkStats{
		ID:     m.nextSeq(),
		LinkID: link.ID,
	}
	link.StatsID = stats.ID

	m.links[link.ID] = link
	m.stats[stats.ID] = stats
	m.byCode[shortCode] = link.ID

	copied := *link
	return &copied, nil
}

func (m *MemoryStore) FindLinkByShortCode(_ context.Context, shortCode string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	linkID, exists := m.byCode[shortCode]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *m.links[linkID]
	return &copied, nil
}

func (m *MemoryStore) FindLinkStatsByID(_ context.Context, statsID int64) (*models.LinkStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, exists := m.stats[statsID]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *stats
	return &copied, nil
}

func (m *MemoryStore) FindLinkStatsByLinkID(_ context.Context, linkID int64) (*models.LinkStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, stats := range m.stats {
		if stats.LinkID == linkID {
			copied := *stats
			return &copied, nil
		}
	}

	return nil, ErrNotFound
}

func (m *MemoryStore) LinkRedirects(_ context.Context, statsID int64, limit int) ([]models.LinkRedirect, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	redirects := append([]models.LinkRedirect(nil), m.redirects[statsID]...)
	sort.SliceStable(redirects, func(i, j int) bool {
		return redirects[i].ClickedAt.After(redirects[j].ClickedAt)
	})

	if limit > 0 && len(redirects) > limit {
		redirects = redirects[:limit]
	}

	return redirects, nil
}

func (m *MemoryStore) UserLinks(_ context.Context, userID int64, page, limit int) ([]models.Link, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []models.Link
	for _, link := range m.links {
		if link.UserID == userID {
			owned = append(owned, *link)
		}
	}

	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	total := int64(len(owned))

	offset := (page - 1) * limit
	if offset >= len(owned) {
		return nil, total, nil
	}

	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}

	return owned[offset:end], total, nil
}

func (m *MemoryStore) DeleteLink(_ context.Context, linkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[linkID]
	if !exists {
		return ErrNotFound
	}

	m.deleteLinkLocked(link)
	return nil
}

func (m *MemoryStore) deleteLinkLocked(link *models.Link) {
	for statsID, stats := range m.stats {
		if stats.LinkID == link.ID {
			delete(m.stats, statsID)
			delete(m.redirects, statsID)
		}
	}
	delete(m.byCode, link.ShortCode)
	delete(m.links, link.ID)
}

func (m *MemoryStore) IncrementAndAppendRedirect(_ context.Context, statsID int64, rec models.LinkRedirect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.stats[statsID]
	if !exists {
		return ErrNotFound
	}

	stats.RedirectsCount++
	rec.ID = m.nextSeq()
	rec.LinkStatsID = statsID
	m.redirects[statsID] = append(m.redirects[statsID], rec)

	return nil
}

func (m *MemoryStore) BulkReassignOwner(_ context.Context, fromUserID, toUserID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, link := range m.links {
		if link.UserID == fromUserID {
			link.UserID = toUserID
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) BulkDeleteByOwner(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, link := range m.links {
		if link.UserID == userID {
			m.deleteLinkLocked(link)
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
