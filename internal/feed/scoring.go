package feed

import (
	"cmp"
	"context"
	"slices"

	"tera/internal/models"
	"tera/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ScoreAndRank scores every candidate and sorts by score, highest first. If
// either affinity lookup fails every candidate scores 0 and input order is
// kept.
func (e *Engine) ScoreAndRank(ctx context.Context, candidates []models.CandidatePost, viewerID string) []models.RankedPost {
	span, ctx := observability.NewSpan(ctx, "feed.scoring", attribute.Int("candidates", len(candidates)))
	defer span.End()

	ranked := make([]models.RankedPost, len(candidates))
	if len(candidates) == 0 {
		return ranked
	}

	authorIDs, hashtagIDs := scoringKeys(candidates)

	var authorAffinity, hashtagAffinity map[string]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		authorAffinity, err = e.repo.AuthorAffinities(gctx, viewerID, authorIDs)
		return err
	})
	g.Go(func() (err error) {
		hashtagAffinity, err = e.repo.HashtagAffinities(gctx, viewerID, hashtagIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		span.SetError(err)
		e.degrade(ctx, "scoring", err)
		for i, c := range candidates {
			ranked[i] = models.RankedPost{CandidatePost: c}
		}
		return ranked
	}

	now := e.now()
	for i, c := range candidates {
		tagSum := 0
		for _, h := range c.Hashtags {
			tagSum += hashtagAffinity[h.ID]
		}
		ranked[i] = models.RankedPost{
			CandidatePost: c,
			Score:         e.params.Score(c, authorAffinity[c.Author.ID], tagSum, now),
		}
	}

	slices.SortStableFunc(ranked, func(a, b models.RankedPost) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}

func scoringKeys(candidates []models.CandidatePost) (authorIDs, hashtagIDs []string) {
	authors := make(map[string]struct{})
	tags := make(map[string]struct{})
	for _, c := range candidates {
		if _, ok := authors[c.Author.ID]; !ok {
			authors[c.Author.ID] = struct{}{}
			authorIDs = append(authorIDs, c.Author.ID)
		}
		for _, h := range c.Hashtags {
			if _, ok := tags[h.ID]; !ok {
				tags[h.ID] = struct{}{}
				hashtagIDs = append(hashtagIDs, h.ID)
			}
		}
	}
	return authorIDs, hashtagIDs
}
