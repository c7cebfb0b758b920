package feed

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"tera/internal/featureflags"
	"tera/internal/models"
	"tera/internal/observability"
	"tera/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Branch names reported to metrics and traces.
const (
	pathReEngagement = "reengagement"
	pathCursor       = "cursor"
	pathCold         = "cold"
	pathProfile      = "profile"
)

// SeenTracker remembers which posts a viewer has been served.
type SeenTracker interface {
	Seen(ctx context.Context, viewerID string) (map[string]struct{}, error)
	MarkSeen(ctx context.Context, viewerID string, ids []string) error
	// Reset forgets the viewer's served posts; called when a new walk starts.
	Reset(ctx context.Context, viewerID string) error
}

// FlagSource answers per-viewer feature flag questions.
type FlagSource interface {
	EnabledOr(name, userID string, fallback bool) bool
}

// Engine builds ranked feed pages. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	repo   repository.FeedRepository
	params Params
	seen   SeenTracker
	flags  FlagSource
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSeenTracker enables recording and, behind the seen-filter flag,
// excluding already served posts.
func WithSeenTracker(s SeenTracker) Option {
	return func(e *Engine) { e.seen = s }
}

// WithFlags sets the feature flag source.
func WithFlags(f FlagSource) Option {
	return func(e *Engine) { e.flags = f }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides observability.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a ranking engine over repo.
func NewEngine(repo repository.FeedRepository, params Params, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		params: params,
		now:    time.Now,
		logger: observability.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the knobs the engine was built with.
func (e *Engine) Params() Params {
	return e.params
}

// RankedFeedRequest is one home feed page request.
type RankedFeedRequest struct {
	ViewerID string
	Limit    int
	// LastActiveAt is when the viewer was last seen before this request. Nil
	// disables the re-engagement branch.
	LastActiveAt *time.Time
	Cursor       string
}

// GetRankedFeed returns one page of the viewer's home feed. Store failures
// degrade to a smaller or empty page; only context cancellation is returned
// as an error.
func (e *Engine) GetRankedFeed(ctx context.Context, req RankedFeedRequest) (*models.FeedResult, error) {
	start := time.Now()
	limit := e.params.ClampLimit(req.Limit)

	span, ctx := observability.NewSpan(ctx, "feed.ranked",
		attribute.String("viewer.id", req.ViewerID),
		attribute.Int("limit", limit),
		attribute.Bool("cursor", req.Cursor != ""),
	)
	defer span.End()

	if e.dormant(req) {
		posts, err := e.ReEngagementFeed(ctx, req.ViewerID, limit)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.degrade(ctx, "reengagement", err)
		case len(posts) > 0:
			span.AddAttributes(attribute.String("path", pathReEngagement))
			observability.ObserveFeedBuild(pathReEngagement, start)
			e.markSeen(ctx, req.ViewerID, posts, true)
			return &models.FeedResult{Posts: posts}, nil
		}
	}

	path := pathCold
	var ranked []models.RankedPost
	if ids, ok := DecodeState(req.Cursor); ok && len(ids) > e.params.MinRemainingForCache {
		ranked = e.PostsFromState(ctx, ids, req.ViewerID)
		if len(ranked) > 0 {
			path = pathCursor
		}
	}

	if path == pathCold {
		candidates := e.CandidatePosts(ctx, req.ViewerID, e.params.CandidatePoolSize)
		if req.Cursor != "" {
			candidates = e.filterSeen(ctx, req.ViewerID, candidates)
		}
		if len(candidates) > 0 {
			ranked = e.ScoreAndRank(ctx, candidates, req.ViewerID)
		}
	}

	if err := ctx.Err(); err != nil {
		span.SetError(err)
		return nil, err
	}

	span.AddAttributes(attribute.String("path", path), attribute.Int("ranked", len(ranked)))
	observability.ObserveFeedBuild(path, start)
	if len(ranked) == 0 {
		return models.EmptyFeed(), nil
	}

	result := paginate(Diversify(ranked, e.params.DiversityWindow), limit)
	e.markSeen(ctx, req.ViewerID, result.Posts, req.Cursor == "")
	return result, nil
}

// paginate splits the ordered list into a page and an encoded remainder.
func paginate(posts []models.RankedPost, limit int) *models.FeedResult {
	if len(posts) <= limit {
		return &models.FeedResult{Posts: posts}
	}
	next := EncodeState(posts[limit:])
	return &models.FeedResult{Posts: posts[:limit], NextCursor: &next}
}

func (e *Engine) dormant(req RankedFeedRequest) bool {
	if req.Cursor != "" || req.LastActiveAt == nil {
		return false
	}
	if e.now().Sub(*req.LastActiveAt) <= e.params.ReEngageAfter {
		return false
	}
	return e.flagOn(featureflags.ReEngagement, req.ViewerID, true)
}

// ReEngagementFeed is the single-page catch-up feed for dormant viewers:
// friends' posts from the last week ranked by reactions + 3*comments. The
// page is returned in score order without author diversification.
func (e *Engine) ReEngagementFeed(ctx context.Context, viewerID string, limit int) ([]models.RankedPost, error) {
	span, ctx := observability.NewSpan(ctx, "feed.reengagement")
	defer span.End()

	since := e.now().Add(-7 * 24 * time.Hour)
	ids, err := e.repo.ReEngagementPostIDs(ctx, viewerID, since, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	posts, err := e.repo.PostsByIDs(ctx, ids, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	out := make([]models.RankedPost, len(posts))
	for i, p := range posts {
		p.Source = models.SourceReEngagement
		out[i] = models.RankedPost{
			CandidatePost: p,
			Score:         float64(p.ReactionCount) + 3*float64(p.CommentCount),
		}
	}
	slices.SortStableFunc(out, func(a, b models.RankedPost) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out, nil
}

// filterSeen drops posts already served to the viewer when the seen filter is
// on for them. Lookup failures leave the candidates untouched.
func (e *Engine) filterSeen(ctx context.Context, viewerID string, candidates []models.CandidatePost) []models.CandidatePost {
	if e.seen == nil || len(candidates) == 0 || !e.flagOn(featureflags.SeenFilter, viewerID, false) {
		return candidates
	}
	seen, err := e.seen.Seen(ctx, viewerID)
	if err != nil {
		e.degrade(ctx, "seen_filter", err)
		return candidates
	}
	if len(seen) == 0 {
		return candidates
	}

	out := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := seen[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// markSeen records a served page. A fresh walk (no cursor) first drops what
// earlier walks recorded.
func (e *Engine) markSeen(ctx context.Context, viewerID string, page []models.RankedPost, fresh bool) {
	if e.seen == nil {
		return
	}
	if fresh {
		if err := e.seen.Reset(ctx, viewerID); err != nil {
			e.logger.WarnContext(ctx, "failed to reset served posts", slog.String("error", err.Error()))
		}
	}
	if len(page) == 0 {
		return
	}
	ids := make([]string, len(page))
	for i, p := range page {
		ids[i] = p.ID
	}
	if err := e.seen.MarkSeen(ctx, viewerID, ids); err != nil {
		e.logger.WarnContext(ctx, "failed to record served posts", slog.String("error", err.Error()))
	}
}

func (e *Engine) flagOn(name, viewerID string, fallback bool) bool {
	if e.flags == nil {
		return fallback
	}
	return e.flags.EnabledOr(name, viewerID, fallback)
}

func (e *Engine) degrade(ctx context.Context, stage string, err error) {
	observability.FeedDegraded.WithLabelValues(stage).Inc()
	e.logger.ErrorContext(ctx, "feed stage degraded",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}
