package feed

import (
	"context"
	"log/slog"

	"tera/internal/models"
	"tera/internal/observability"
	"tera/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// CandidatePosts draws up to poolSize deduplicated, hydrated candidates from
// the friend, topic, trending and random pools. Any store failure yields an
// empty slice.
func (e *Engine) CandidatePosts(ctx context.Context, viewerID string, poolSize int) []models.CandidatePost {
	span, ctx := observability.NewSpan(ctx, "feed.sourcing",
		attribute.String("viewer.id", viewerID),
		attribute.Int("pool.size", poolSize),
	)
	defer span.End()

	var candidates []models.CandidatePost
	run := func(r repository.FeedReader) error {
		var err error
		candidates, err = e.source(ctx, r, viewerID, poolSize)
		return err
	}

	var err error
	if e.params.SnapshotReads {
		err = e.repo.ReadSnapshot(ctx, run)
	} else {
		err = run(e.repo)
	}
	if err != nil {
		span.SetError(err)
		e.degrade(ctx, "sourcing", err)
		return []models.CandidatePost{}
	}

	span.AddAttributes(attribute.Int("candidates", len(candidates)))
	return candidates
}

func (e *Engine) source(ctx context.Context, r repository.FeedReader, viewerID string, poolSize int) ([]models.CandidatePost, error) {
	alloc := Allocate(poolSize, e.interestProfile(ctx, r, viewerID), e.params)

	var friendIDs, topicIDs, trendingIDs, randomIDs []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		friendIDs, err = r.FriendPostIDs(gctx, viewerID, alloc.Friend)
		return err
	})
	g.Go(func() (err error) {
		topicIDs, err = r.TopicPostIDs(gctx, viewerID, e.params.TopicHashtagLimit, alloc.Topic)
		return err
	})
	g.Go(func() (err error) {
		trendingIDs, err = r.TrendingPostIDs(gctx, repository.TrendingQuery{
			ViewerID:       viewerID,
			Since:          e.now().Add(-e.params.TrendingWindow),
			ReactionWeight: e.params.ReactionWeight,
			CommentWeight:  e.params.CommentWeight,
			Limit:          alloc.Trending,
		})
		return err
	})
	g.Go(func() (err error) {
		randomIDs, err = r.RandomPostIDs(gctx, viewerID, alloc.Random)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	observability.FeedCandidates.WithLabelValues(string(models.SourceFriend)).Observe(float64(len(friendIDs)))
	observability.FeedCandidates.WithLabelValues(string(models.SourceTopic)).Observe(float64(len(topicIDs)))
	observability.FeedCandidates.WithLabelValues(string(models.SourceTrending)).Observe(float64(len(trendingIDs)))
	observability.FeedCandidates.WithLabelValues(string(models.SourceDiscovery)).Observe(float64(len(randomIDs)))

	ids, sources := mergeSources(
		sourced{models.SourceFriend, friendIDs},
		sourced{models.SourceTopic, topicIDs},
		sourced{models.SourceTrending, trendingIDs},
		sourced{models.SourceDiscovery, randomIDs},
	)
	if len(ids) == 0 {
		return []models.CandidatePost{}, nil
	}

	posts, err := r.PostsByIDs(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Source = sources[posts[i].ID]
	}
	return posts, nil
}

// interestProfile falls back to DefaultProfile when the signal cannot be read.
// The reads sit behind a savepoint so the pools can still run in the same
// snapshot after a failure.
func (e *Engine) interestProfile(ctx context.Context, r repository.FeedReader, viewerID string) InterestProfile {
	profile := DefaultProfile
	err := r.Recoverable(ctx, "interest_profile", func(r repository.FeedReader) error {
		friendIDs, err := r.FriendIDs(ctx, viewerID)
		if err != nil {
			return err
		}
		rows, err := r.AuthorAffinityRows(ctx, viewerID)
		if err != nil {
			return err
		}
		profile = ComputeInterestProfile(rows, friendIDs, e.params.MinAffinityThreshold)
		return nil
	})
	if err != nil {
		e.logger.WarnContext(ctx, "interest profile unavailable, using default split", slog.String("error", err.Error()))
		return DefaultProfile
	}
	return profile
}

type sourced struct {
	source models.PostSource
	ids    []string
}

// mergeSources unions the pools in order, keeping the first source each ID
// was seen in.
func mergeSources(pools ...sourced) ([]string, map[string]models.PostSource) {
	seen := make(map[string]models.PostSource)
	var ids []string
	for _, pool := range pools {
		for _, id := range pool.ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = pool.source
			ids = append(ids, id)
		}
	}
	return ids, seen
}
