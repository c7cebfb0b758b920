package feed

import (
	"context"
	"time"

	"tera/internal/models"
	"tera/internal/observability"
	"tera/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// AuthorFeedRequest pages through one author's posts by creation time.
type AuthorFeedRequest struct {
	AuthorID string
	ViewerID string
	Limit    int
	// Cursor is the RFC 3339 timestamp of the last post already shown. An
	// unparseable cursor restarts from the first page.
	Cursor string
	Oldest bool
}

// AuthorFeed returns a chronological page of one author's posts. Scores are
// (1 + engagement) * timeDecay and only give clients a stable sort key.
func (e *Engine) AuthorFeed(ctx context.Context, req AuthorFeedRequest) (*models.FeedResult, error) {
	start := time.Now()
	limit := e.params.ClampLimit(req.Limit)

	span, ctx := observability.NewSpan(ctx, "feed.author",
		attribute.String("author.id", req.AuthorID),
		attribute.Int("limit", limit),
	)
	defer span.End()

	q := repository.AuthorPostsQuery{
		AuthorID: req.AuthorID,
		ViewerID: req.ViewerID,
		Oldest:   req.Oldest,
		Limit:    limit + 1,
	}
	if ts, ok := parseTimeCursor(req.Cursor); ok {
		q.Cursor = &ts
	}

	posts, err := e.repo.PostsByAuthor(ctx, q)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		span.SetError(err)
		e.degrade(ctx, "author", err)
		return models.EmptyFeed(), nil
	}
	observability.ObserveFeedBuild(pathProfile, start)

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	now := e.now()
	page := make([]models.RankedPost, len(posts))
	for i, p := range posts {
		p.Source = models.SourceAuthor
		page[i] = models.RankedPost{
			CandidatePost: p,
			Score:         (1 + e.params.Engagement(p)) * TimeDecay(p.CreatedAt, now, e.params.TimeDecayFactor),
		}
	}

	result := &models.FeedResult{Posts: page}
	if hasMore && len(page) > 0 {
		next := page[len(page)-1].CreatedAt.UTC().Format(time.RFC3339Nano)
		result.NextCursor = &next
	}
	return result, nil
}

func parseTimeCursor(cursor string) (time.Time, bool) {
	if cursor == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
