package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tera/internal/feed"
	"tera/internal/models"
	"tera/internal/observability"
	"tera/internal/repository"
)

// Feed kinds accepted by GetFeed.
const (
	FeedForHome    = "home"
	FeedForProfile = "profile"
)

// Profile feed directions.
const (
	DirectionNewest = "newest"
	DirectionOldest = "oldest"
)

// FeedEngine is the ranking surface FeedService drives.
type FeedEngine interface {
	GetRankedFeed(ctx context.Context, req feed.RankedFeedRequest) (*models.FeedResult, error)
	AuthorFeed(ctx context.Context, req feed.AuthorFeedRequest) (*models.FeedResult, error)
	Params() feed.Params
}

type FeedService struct {
	engine   FeedEngine
	userRepo repository.UserRepository
	now      func() time.Time
}

type GetFeedInput struct {
	ViewerID string
	Limit    int
	FeedFor  string
	Cursor   string
	// ProfileUserID selects whose posts a profile feed shows. Empty means the
	// viewer's own profile.
	ProfileUserID string
	Direction     string
}

func NewFeedService(engine FeedEngine, userRepo repository.UserRepository) *FeedService {
	return &FeedService{
		engine:   engine,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// GetFeed validates the request and serves either the ranked home feed or a
// chronological profile feed.
func (s *FeedService) GetFeed(ctx context.Context, in GetFeedInput) (*models.FeedResult, error) {
	if strings.TrimSpace(in.ViewerID) == "" {
		return nil, models.NewValidationError("userId is required to fetch feed")
	}
	maxLimit := s.engine.Params().MaxPageSize
	if in.Limit < 0 || in.Limit > maxLimit {
		return nil, models.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", maxLimit))
	}

	feedFor := strings.ToLower(strings.TrimSpace(in.FeedFor))
	if feedFor == "" {
		feedFor = FeedForHome
	}

	switch feedFor {
	case FeedForHome:
		return s.homeFeed(ctx, in)
	case FeedForProfile:
		return s.profileFeed(ctx, in)
	default:
		return nil, models.NewValidationError("feedFor must be home or profile")
	}
}

func (s *FeedService) homeFeed(ctx context.Context, in GetFeedInput) (*models.FeedResult, error) {
	req := feed.RankedFeedRequest{
		ViewerID: in.ViewerID,
		Limit:    in.Limit,
		Cursor:   strings.TrimSpace(in.Cursor),
	}

	user, err := s.userRepo.GetByID(ctx, in.ViewerID)
	switch {
	case err == nil:
		lastSeen := user.LastSeen()
		if !lastSeen.IsZero() {
			req.LastActiveAt = &lastSeen
		}
	case isNotFound(err):
		return nil, err
	default:
		// dormancy is unknown; rank without the re-engagement branch
		observability.Logger.WarnContext(ctx, "viewer lookup failed",
			slog.String("viewer_id", in.ViewerID),
			slog.String("error", err.Error()),
		)
	}

	result, err := s.engine.GetRankedFeed(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.TouchLastActive(ctx, in.ViewerID, s.now()); err != nil {
		observability.Logger.WarnContext(ctx, "failed to record viewer activity",
			slog.String("viewer_id", in.ViewerID),
			slog.String("error", err.Error()),
		)
	}
	return result, nil
}

func (s *FeedService) profileFeed(ctx context.Context, in GetFeedInput) (*models.FeedResult, error) {
	var oldest bool
	switch strings.ToLower(strings.TrimSpace(in.Direction)) {
	case "", DirectionNewest:
	case DirectionOldest:
		oldest = true
	default:
		return nil, models.NewValidationError("direction must be newest or oldest")
	}

	authorID := strings.TrimSpace(in.ProfileUserID)
	if authorID == "" {
		authorID = in.ViewerID
	}
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}

	return s.engine.AuthorFeed(ctx, feed.AuthorFeedRequest{
		AuthorID: authorID,
		ViewerID: in.ViewerID,
		Limit:    in.Limit,
		Cursor:   strings.TrimSpace(in.Cursor),
		Oldest:   oldest,
	})
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == "NOT_FOUND"
}
