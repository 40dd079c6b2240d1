package repository

import (
	"context"
	"errors"

	"github.com/mmeshcher/link-service/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("short code already exists")
)

// Store is the durable persistence boundary. Atomicity of
// IncrementAndAppendRedirect and of the bulk ownership operations is the
// store's responsibility; callers do no locking of their own.
type Store interface {
	CreateLink(ctx context.Context, userID int64, shortCode, targetURL string) (*models.Link, error)
	FindLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error)
	FindLinkStatsByID(ctx context.Context, statsID int64) (*models.LinkStats, error)
	FindLinkStatsByLinkID(ctx context.Context, linkID int64) (*models.LinkStats, error)
	LinkRedirects(ctx context.Context, statsID int64, limit int) ([]models.LinkRedirect, error)
	UserLinks(ctx context.Context, userID int64, page, limit int) ([]models.Link, int64, error)
	DeleteLink(ctx context.Context, linkID int64) error

	// IncrementAndAppendRedirect bumps the stats counter by one and appends
	// the record in a single transaction.
	IncrementAndAppendRedirect(ctx context.Context, statsID int64, rec models.LinkRedirect) error

	// BulkReassignOwner moves every link owned by fromUserID to toUserID and
	// returns the number of links rewritten.
	BulkReassignOwner(ctx context.Context, fromUserID, toUserID int64) (int64, error)

	// BulkDeleteByOwner removes every link owned by userID, cascading stats
	// and redirect history, and returns the number of links deleted.
	BulkDeleteByOwner(ctx context.Context, userID int64) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
