package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tera/internal/models"
	"tera/internal/repository"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func candidate(id, author string, age time.Duration, reactions, comments int) models.CandidatePost {
	return models.CandidatePost{
		ID:            id,
		Author:        models.AuthorSummary{ID: author, Username: author},
		CreatedAt:     testNow.Add(-age),
		UpdatedAt:     testNow.Add(-age),
		Media:         []models.PostMedia{},
		Hashtags:      []models.HashtagSummary{},
		ReactionCount: reactions,
		CommentCount:  comments,
	}
}

func ranked(id, author string, score float64) models.RankedPost {
	return models.RankedPost{
		CandidatePost: models.CandidatePost{ID: id, Author: models.AuthorSummary{ID: author}},
		Score:         score,
	}
}

func rankedIDs(posts []models.RankedPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

// stubRepo is an in-memory FeedRepository. Nil func fields fall back to
// serving the configured pools and posts.
type stubRepo struct {
	mu sync.Mutex

	posts        map[string]models.CandidatePost
	friendIDs    []string
	affinityRows []models.UserAffinity
	friendPool   []string
	topicPool    []string
	trendingPool []string
	randomPool   []string
	authorAff    map[string]int
	hashtagAff   map[string]int

	profileErr   error
	sourcingErr  error
	hydrateErr   error
	affinityErr  error
	reEngageIDs  []string
	reEngageErr  error
	authorPosts  func(q repository.AuthorPostsQuery) ([]models.CandidatePost, error)

	snapshots     int
	recoverable   int
	sourcingCalls int
	limits        map[string]int
	lastTrending  repository.TrendingQuery
	lastAuthorQ   repository.AuthorPostsQuery
}

func newStubRepo(posts ...models.CandidatePost) *stubRepo {
	r := &stubRepo{posts: make(map[string]models.CandidatePost), limits: make(map[string]int)}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *stubRepo) record(name string, limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[name] = limit
	if name == "friend" {
		r.sourcingCalls++
	}
}

func (r *stubRepo) ReadSnapshot(_ context.Context, fn func(repository.FeedReader) error) error {
	r.mu.Lock()
	r.snapshots++
	r.mu.Unlock()
	return fn(r)
}

func (r *stubRepo) Recoverable(_ context.Context, _ string, fn func(repository.FeedReader) error) error {
	r.mu.Lock()
	r.recoverable++
	r.mu.Unlock()
	return fn(r)
}

func (r *stubRepo) FriendIDs(context.Context, string) ([]string, error) {
	return r.friendIDs, r.profileErr
}

func (r *stubRepo) AuthorAffinityRows(context.Context, string) ([]models.UserAffinity, error) {
	return r.affinityRows, nil
}

func (r *stubRepo) FriendPostIDs(_ context.Context, _ string, limit int) ([]string, error) {
	r.record("friend", limit)
	return r.friendPool, r.sourcingErr
}

func (r *stubRepo) TopicPostIDs(_ context.Context, _ string, _ int, limit int) ([]string, error) {
	r.record("topic", limit)
	return r.topicPool, nil
}

func (r *stubRepo) TrendingPostIDs(_ context.Context, q repository.TrendingQuery) ([]string, error) {
	r.record("trending", q.Limit)
	r.mu.Lock()
	r.lastTrending = q
	r.mu.Unlock()
	return r.trendingPool, nil
}

func (r *stubRepo) RandomPostIDs(_ context.Context, _ string, limit int) ([]string, error) {
	r.record("random", limit)
	return r.randomPool, nil
}

func (r *stubRepo) PostsByIDs(_ context.Context, ids []string, _ string) ([]models.CandidatePost, error) {
	if r.hydrateErr != nil {
		return nil, r.hydrateErr
	}
	out := make([]models.CandidatePost, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRepo) AuthorAffinities(context.Context, string, []string) (map[string]int, error) {
	if r.affinityErr != nil {
		return nil, r.affinityErr
	}
	return r.authorAff, nil
}

func (r *stubRepo) HashtagAffinities(context.Context, string, []string) (map[string]int, error) {
	return r.hashtagAff, nil
}

func (r *stubRepo) ReEngagementPostIDs(context.Context, string, time.Time, int) ([]string, error) {
	return r.reEngageIDs, r.reEngageErr
}

func (r *stubRepo) PostsByAuthor(_ context.Context, q repository.AuthorPostsQuery) ([]models.CandidatePost, error) {
	r.lastAuthorQ = q
	if r.authorPosts != nil {
		return r.authorPosts(q)
	}
	return nil, nil
}

// catalog adds n posts by rotating authors and returns their IDs.
func (r *stubRepo) catalog(prefix string, n, authors int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%02d", prefix, i)
		author := fmt.Sprintf("author-%d", i%authors)
		r.posts[id] = candidate(id, author, time.Duration(i+1)*time.Hour, i%7, i%3)
		out[i] = id
	}
	return out
}

type stubSeen struct {
	seen   map[string]struct{}
	marked []string
	resets int
	err    error
}

func (s *stubSeen) Seen(context.Context, string) (map[string]struct{}, error) {
	return s.seen, s.err
}

func (s *stubSeen) Reset(context.Context, string) error {
	s.resets++
	s.seen = nil
	s.marked = nil
	return nil
}

func (s *stubSeen) MarkSeen(_ context.Context, _ string, ids []string) error {
	s.marked = append(s.marked, ids...)
	return nil
}

type stubFlags map[string]bool

func (f stubFlags) EnabledOr(name, _ string, fallback bool) bool {
	if v, ok := f[name]; ok {
		return v
	}
	return fallback
}
