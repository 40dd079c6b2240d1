package service

import (
	"context"
	"errors"

	"github.com/mileusna/useragent"
	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/broker"
	"github.com/mmeshcher/link-service/internal/events"
	"github.com/mmeshcher/link-service/internal/models"
	"github.com/mmeshcher/link-service/internal/repository"
)

// HandleRedirectEvent enriches a redirect event with device and geo data and
// applies one atomic counter-increment-plus-append. Geo lookup failure and a
// missing user agent leave fields unset; only a store failure makes the
// event retry. Redelivery after a confirmed success counts the redirect
// again: there is no idempotency key.
func (s *LinksService) HandleRedirectEvent(ctx context.Context, ev any) broker.Outcome {
	evt, ok := ev.(events.LinkRedirectEvent)
	if !ok {
		s.logger.Error("Unexpected payload type for redirect event")
		return broker.Fatal
	}

	statsID := evt.LinkStatsID
	if statsID == 0 {
		stats, err := s.store.FindLinkStatsByLinkID(ctx, evt.LinkID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Error("No stats row for redirect event",
					zap.Int64("linkID", evt.LinkID))
				return broker.Fatal
			}
			s.logger.Error("Failed to resolve stats for redirect event",
				zap.Int64("linkID", evt.LinkID),
				zap.Error(err))
			return broker.Retry
		}
		statsID = stats.ID
	}

	rec := models.LinkRedirect{
		IP:        evt.IP,
		ClickedAt: evt.Timestamp,
	}

	if evt.UserAgent != "" {
		ua := useragent.Parse(evt.UserAgent)
		rec.Browser = ua.Name
		rec.OS = ua.OS
		rec.Device = ua.Device
		rec.IsMobile = ua.Mobile
		rec.IsTablet = ua.Tablet
	}

	if evt.IP != "" {
		rec.Country = s.geo.CountryForIP(ctx, evt.IP)
	}

	if err := s.store.IncrementAndAppendRedirect(ctx, statsID, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Stats row vanished before redirect update",
				zap.Int64("statsID", statsID))
			return broker.Fatal
		}
		s.logger.Error("Failed to record redirect",
			zap.Int64("statsID", statsID),
			zap.Error(err))
		return broker.Retry
	}

	return broker.Success
}

// HandleAccountsMerged rewrites link ownership in bulk. Naturally
// idempotent: a re-run finds no links left under the source user.
func (s *LinksService) HandleAccountsMerged(ctx context.Context, ev any) broker.Outcome {
	evt, ok := ev.(events.AccountsMergedEvent)
	if !ok {
		s.logger.Error("Unexpected payload type for accounts merged event")
		return broker.Fatal
	}

	s.logger.Info("Migrating links between users",
		zap.Int64("sourceUserID", evt.SourceUserID),
		zap.Int64("targetUserID", evt.TargetUserID))

	count, err := s.store.BulkReassignOwner(ctx, evt.SourceUserID, evt.TargetUserID)
	if err != nil {
		s.logger.Error("Failed to migrate user links",
			zap.Int64("sourceUserID", evt.SourceUserID),
			zap.Int64("targetUserID", evt.TargetUserID),
			zap.Error(err))
		return broker.Retry
	}

	s.logger.Info("Migrated user links",
		zap.Int64("sourceUserID", evt.SourceUserID),
		zap.Int64("targetUserID", evt.TargetUserID),
		zap.Int64("count", count))

	return broker.Success
}

// HandleUserDeleted removes every link owned by the user, cascading stats
// and redirect history. Naturally idempotent: a re-run deletes zero.
func (s *LinksService) HandleUserDeleted(ctx context.Context, ev any) broker.Outcome {
	evt, ok := ev.(events.UserDeletedEvent)
	if !ok {
		s.logger.Error("Unexpected payload type for user deleted event")
		return broker.Fatal
	}

	s.logger.Info("Deleting user links", zap.Int64("userID", evt.UserID))

	count, err := s.store.BulkDeleteByOwner(ctx, evt.UserID)
	if err != nil {
		s.logger.Error("Failed to delete user links",
			zap.Int64("userID", evt.UserID),
			zap.Error(err))
		return broker.Retry
	}

	s.logger.Info("Deleted user links",
		zap.Int64("userID", evt.UserID),
		zap.Int64("count", count))

	return broker.Success
}
