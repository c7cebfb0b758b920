package feed

import (
	"context"
	"encoding/base64"
	"strings"

	"tera/internal/models"
	"tera/internal/observability"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
)

// EncodeState serializes the unshown post IDs, in order, as a URL-safe token.
// Scores and content are never stored.
func EncodeState(posts []models.RankedPost) string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	raw, _ := json.Marshal(ids)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeState is the inverse of EncodeState. Anything that is not a
// base64url-encoded JSON array of strings is reported as a miss.
func DecodeState(cursor string) ([]string, bool) {
	cursor = strings.TrimRight(strings.TrimSpace(cursor), "=")
	if cursor == "" {
		return nil, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, false
	}
	var elems []*string
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, false
	}
	ids := make([]string, len(elems))
	for i, id := range elems {
		if id == nil {
			return nil, false
		}
		ids[i] = *id
	}
	return ids, true
}

// PostsFromState rehydrates cursor IDs with current counters and rescores
// them. IDs that no longer resolve are dropped; a store failure returns nil.
func (e *Engine) PostsFromState(ctx context.Context, ids []string, viewerID string) []models.RankedPost {
	span, ctx := observability.NewSpan(ctx, "feed.hydrate_state", attribute.Int("ids", len(ids)))
	defer span.End()

	posts, err := e.repo.PostsByIDs(ctx, ids, viewerID)
	if err != nil {
		span.SetError(err)
		e.degrade(ctx, "hydration", err)
		return nil
	}
	if len(posts) == 0 {
		return nil
	}
	return e.ScoreAndRank(ctx, posts, viewerID)
}
