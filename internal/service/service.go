package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/events"
	"github.com/mmeshcher/link-service/internal/models"
	"github.com/mmeshcher/link-service/internal/repository"
)

var (
	ErrEmptyURL   = errors.New("empty url")
	ErrInvalidURL = errors.New("invalid url")
)

const (
	shortCodeLength  = 6
	maxCodeAttempts  = 10
	recentRedirects  = 10
	defaultPageLimit = 20
)

// Publisher enqueues a domain event; the broker implementation satisfies it.
type Publisher interface {
	Publish(ctx context.Context, kind events.Kind, payload any) error
}

// GeoResolver maps an IP to a country code or an empty string.
type GeoResolver interface {
	CountryForIP(ctx context.Context, ip string) string
}

type LinksService struct {
	store     repository.Store
	geo       GeoResolver
	publisher Publisher
	logger    *zap.Logger
}

func NewLinksService(store repository.Store, geo GeoResolver, publisher Publisher, logger *zap.Logger) *LinksService {
	return &LinksService{
		store:     store,
		geo:       geo,
		publisher: publisher,
		logger:    logger,
	}
}

// Resolve returns the target URL for shortCode. When the link tracks stats,
// a LINK_REDIRECT event is published fire-and-forget: a publish failure is
// logged and never fails the redirect itself.
func (s *LinksService) Resolve(ctx context.Context, shortCode, userAgent, ip string) (string, error) {
	link, err := s.store.FindLinkByShortCode(ctx, shortCode)
	if err != nil {
		return "", err
	}

	if link.StatsID > 0 {
		ev := events.LinkRedirectEvent{
			LinkID:    link.ID,
			UserAgent: userAgent,
			IP:        ip,
			Timestamp: time.Now(),
		}

		if err := s.publisher.Publish(ctx, events.KindLinkRedirect, ev); err != nil {
			s.logger.Error("Failed to publish redirect event",
				zap.String("shortCode", shortCode),
				zap.Int64("linkID", link.ID),
				zap.Error(err))
		}
	}

	return link.TargetURL, nil
}

func (s *LinksService) CreateLink(ctx context.Context, userID int64, req models.CreateLinkRequest) (*models.Link, error) {
	if req.TargetURL == "" {
		s.logger.Warn("Attempt to create link for empty URL")
		return nil, ErrEmptyURL
	}

	if _, err := url.ParseRequestURI(req.TargetURL); err != nil {
		s.logger.Warn("Invalid URL provided",
			zap.String("url", req.TargetURL),
			zap.Error(err))
		return nil, ErrInvalidURL
	}

	if req.CustomShortCode != "" {
		return s.store.CreateLink(ctx, userID, req.CustomShortCode, req.TargetURL)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		link, err := s.store.CreateLink(ctx, userID, generateShortCode(), req.TargetURL)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		return link, err
	}

	return nil, fmt.Errorf("failed to generate unique short code after %d attempts", maxCodeAttempts)
}

func (s *LinksService) UserLinks(ctx context.Context, userID int64, page, limit int) (*models.UserLinksResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}

	links, total, err := s.store.UserLinks(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list user links: %w", err)
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}

	return &models.UserLinksResponse{
		Links: links,
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func (s *LinksService) LinkStats(ctx context.Context, shortCode string) (*models.LinkStatsResponse, error) {
	link, err := s.store.FindLinkByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	stats, err := s.store.FindLinkStatsByLinkID(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	redirects, err := s.store.LinkRedirects(ctx, stats.ID, recentRedirects)
	if err != nil {
		return nil, fmt.Errorf("list redirects: %w", err)
	}

	return &models.LinkStatsResponse{
		RedirectsCount: stats.RedirectsCount,
		Redirects:      redirects,
	}, nil
}

func (s *LinksService) DeleteLink(ctx context.Context, shortCode string) error {
	link, err := s.store.FindLinkByShortCode(ctx, shortCode)
	if err != nil {
		return err
	}

	return s.store.DeleteLink(ctx, link.ID)
}

func (s *LinksService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func generateShortCode() string {
	bytes := make([]byte, shortCodeLength)
	rand.Read(bytes)
	code := base64.URLEncoding.EncodeToString(bytes)[:shortCodeLength]
	return strings.ToLower(code)
}
