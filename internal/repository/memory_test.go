package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/link-service/internal/models"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	link, err := store.CreateLink(ctx, 1, "ab12cd", "https://example.com")
	require.NoError(t, err)
	assert.NotZero(t, link.ID)
	assert.NotZero(t, link.StatsID)

	found, err := store.FindLinkByShortCode(ctx, "ab12cd")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", found.TargetURL)
	assert.Equal(t, link.StatsID, found.StatsID)

	_, err = store.FindLinkByShortCode(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.CreateLink(ctx, 2, "ab12cd", "https://other.com")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryStoreIncrementAndAppendRedirect(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	link, err := store.CreateLink(ctx, 1, "ab12cd", "https://example.com")
	require.NoError(t, err)

	clickedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := models.LinkRedirect{
		IP:        "8.8.8.8",
		Country:   "US",
		Browser:   "Chrome",
		ClickedAt: clickedAt,
	}

	require.NoError(t, store.IncrementAndAppendRedirect(ctx, link.StatsID, rec))

	stats, err := store.FindLinkStatsByID(ctx, link.StatsID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RedirectsCount)

	redirects, err := store.LinkRedirects(ctx, link.StatsID, 10)
	require.NoError(t, err)
	require.Len(t, redirects, 1)
	assert.Equal(t, "8.8.8.8", redirects[0].IP)
	assert.Equal(t, clickedAt, redirects[0].ClickedAt)

	err = store.IncrementAndAppendRedirect(ctx, 9999, rec)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRedirectOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	link, err := store.CreateLink(ctx, 1, "ab12cd", "https://example.com")
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := models.LinkRedirect{ClickedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.IncrementAndAppendRedirect(ctx, link.StatsID, rec))
	}

	redirects, err := store.LinkRedirects(ctx, link.StatsID, 2)
	require.NoError(t, err)
	require.Len(t, redirects, 2)
	assert.True(t, redirects[0].ClickedAt.After(redirects[1].ClickedAt))
}

func TestMemoryStoreBulkReassignOwner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, code := range []string{"aaa", "bbb", "ccc"} {
		_, err := store.CreateLink(ctx, 10, code, "https://example.com/"+code)
		require.NoError(t, err)
	}
	_, err := store.CreateLink(ctx, 20, "ddd", "https://example.com/ddd")
	require.NoError(t, err)

	count, err := store.BulkReassignOwner(ctx, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, total, err := store.UserLinks(ctx, 20, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	// re-run is a no-op
	count, err = store.BulkReassignOwner(ctx, 10, 20)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStoreBulkDeleteByOwner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	link, err := store.CreateLink(ctx, 10, "aaa", "https://example.com/a")
	require.NoError(t, err)
	_, err = store.CreateLink(ctx, 10, "bbb", "https://example.com/b")
	require.NoError(t, err)

	rec := models.LinkRedirect{ClickedAt: time.Now()}
	require.NoError(t, store.IncrementAndAppendRedirect(ctx, link.StatsID, rec))

	count, err := store.BulkDeleteByOwner(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = store.FindLinkByShortCode(ctx, "aaa")
	assert.ErrorIs(t, err, ErrNotFound)

	// cascade removed stats and history
	_, err = store.FindLinkStatsByID(ctx, link.StatsID)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err = store.BulkDeleteByOwner(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStoreUserLinksPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	codes := []string{"aaa", "bbb", "ccc", "ddd", "eee"}
	for _, code := range codes {
		_, err := store.CreateLink(ctx, 1, code, "https://example.com/"+code)
		require.NoError(t, err)
	}

	links, total, err := store.UserLinks(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, links, 2)

	links, _, err = store.UserLinks(ctx, 1, 3, 2)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	links, _, err = store.UserLinks(ctx, 1, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestMemoryStoreDeleteLink(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	link, err := store.CreateLink(ctx, 1, "ab12cd", "https://example.com")
	require.NoError(t, err)

	require.NoError(t, store.DeleteLink(ctx, link.ID))
	assert.ErrorIs(t, store.DeleteLink(ctx, link.ID), ErrNotFound)
}
