// Package feed ranks and paginates the home feed: candidate sourcing,
// affinity/engagement/time-decay scoring, author diversification and the
// opaque continuation cursor.
package feed

import (
	"math"
	"time"

	"tera/internal/config"
	"tera/internal/models"
)

// Params are the ranking knobs the engine reads on every request.
type Params struct {
	CandidatePoolSize    int
	ReactionWeight       float64
	CommentWeight        float64
	ShareWeight          float64
	TimeDecayFactor      float64
	PageSize             int
	MaxPageSize          int
	MinRemainingForCache int
	TrendingCount        int
	RandomCount          int
	TrendingWindow       time.Duration
	DiversityWindow      int
	MinAffinityThreshold int
	TopicHashtagLimit    int
	ReEngageAfter        time.Duration
	SnapshotReads        bool

	// SourceWeights are carried for operators and logs only. Scoring does not
	// read them; a post's source never changes its score.
	SourceWeights SourceWeights
}

// SourceWeights are the per-pool weights from configuration.
type SourceWeights struct {
	Friend    float64
	Topic     float64
	Trending  float64
	Discovery float64
}

// DefaultParams mirrors the configuration defaults.
func DefaultParams() Params {
	return Params{
		CandidatePoolSize:    100,
		ReactionWeight:       1,
		CommentWeight:        3,
		ShareWeight:          5,
		TimeDecayFactor:      1.8,
		PageSize:             20,
		MaxPageSize:          50,
		MinRemainingForCache: 10,
		TrendingCount:        10,
		RandomCount:          5,
		TrendingWindow:       48 * time.Hour,
		DiversityWindow:      3,
		MinAffinityThreshold: 1,
		TopicHashtagLimit:    10,
		ReEngageAfter:        7 * 24 * time.Hour,
		SnapshotReads:        true,
		SourceWeights:        SourceWeights{Friend: 1.7, Topic: 1.2, Trending: 1, Discovery: 1},
	}
}

// ParamsFromConfig maps the validated feed configuration onto Params.
func ParamsFromConfig(c config.FeedConfig) Params {
	return Params{
		CandidatePoolSize:    c.CandidatePoolSize,
		ReactionWeight:       c.ReactionWeight,
		CommentWeight:        c.CommentWeight,
		ShareWeight:          c.ShareWeight,
		TimeDecayFactor:      c.TimeDecayFactor,
		PageSize:             c.PageSize,
		MaxPageSize:          c.MaxPageSize,
		MinRemainingForCache: c.MinRemainingForCache,
		TrendingCount:        c.TrendingCount,
		RandomCount:          c.RandomCount,
		TrendingWindow:       c.TrendingWindow(),
		DiversityWindow:      c.DiversityWindow,
		MinAffinityThreshold: c.MinAffinityThreshold,
		TopicHashtagLimit:    c.TopicHashtagLimit,
		ReEngageAfter:        c.ReEngageAfter(),
		SnapshotReads:        c.SnapshotReads,
		SourceWeights: SourceWeights{
			Friend:    c.SourceWeightFriend,
			Topic:     c.SourceWeightTopic,
			Trending:  c.SourceWeightTrending,
			Discovery: c.SourceWeightDiscovery,
		},
	}
}

// ClampLimit applies the page size default and ceiling.
func (p Params) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return p.PageSize
	case limit > p.MaxPageSize:
		return p.MaxPageSize
	}
	return limit
}

// Engagement is the weighted sum of a post's live counters.
func (p Params) Engagement(c models.CandidatePost) float64 {
	return float64(c.ReactionCount)*p.ReactionWeight +
		float64(c.CommentCount)*p.CommentWeight +
		float64(c.ShareCount)*p.ShareWeight
}

// TimeDecay is exp(-ageHours/factor). It exceeds 1 for future timestamps.
func TimeDecay(createdAt, now time.Time, factor float64) float64 {
	return math.Exp(-now.Sub(createdAt).Hours() / factor)
}

// Score divides the additive signal by the time decay, so older posts score
// higher for the same signal. Once the decay underflows to zero the score
// saturates at MaxFloat64 instead of becoming Inf or NaN.
func (p Params) Score(c models.CandidatePost, authorAffinity, hashtagAffinity int, now time.Time) float64 {
	signal := p.Engagement(c) + float64(authorAffinity) + float64(hashtagAffinity)
	if signal == 0 {
		return 0
	}
	decay := TimeDecay(c.CreatedAt, now, p.TimeDecayFactor)
	if decay == 0 {
		return math.Copysign(math.MaxFloat64, signal)
	}
	score := signal / decay
	if math.IsInf(score, 0) {
		return math.Copysign(math.MaxFloat64, score)
	}
	return score
}
