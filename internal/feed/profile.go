package feed

import (
	"math"

	"tera/internal/models"
)

// Sub-pool caps applied on top of the allocation.
const (
	friendQueryShare = 0.4
	topicQueryShare  = 0.3
	trendingShare    = 0.7
	randomShare      = 0.3
)

// InterestProfile is the viewer's split of attention between sources.
type InterestProfile struct {
	Friend    float64
	Topic     float64
	Discovery float64
}

// DefaultProfile is used for viewers with no affinity signal.
var DefaultProfile = InterestProfile{Friend: 0.5, Topic: 0.3, Discovery: 0.2}

// ComputeInterestProfile splits the viewer's author-affinity mass between
// accepted friends and everyone else. Rows scoring below minScore are ignored.
func ComputeInterestProfile(rows []models.UserAffinity, friendIDs []string, minScore int) InterestProfile {
	friends := make(map[string]struct{}, len(friendIDs))
	for _, id := range friendIDs {
		friends[id] = struct{}{}
	}

	var friendMass, otherMass float64
	for _, row := range rows {
		if row.Score < minScore {
			continue
		}
		if _, ok := friends[row.TargetUserID]; ok {
			friendMass += float64(row.Score)
		} else {
			otherMass += float64(row.Score)
		}
	}

	total := friendMass + otherMass
	if total <= 0 {
		return DefaultProfile
	}

	friendRatio := math.Min(0.4, friendMass/total)
	topicRatio := math.Min(0.4, otherMass/total)
	return InterestProfile{
		Friend:    math.Max(0.2, friendRatio),
		Topic:     math.Max(0.2, topicRatio),
		Discovery: math.Max(0.1, 1-friendRatio-topicRatio),
	}
}

// Allocation is the per-source query limit for one sourcing run.
type Allocation struct {
	Friend   int
	Topic    int
	Trending int
	Random   int
}

// Total is the most candidates the four queries can return together.
func (a Allocation) Total() int {
	return a.Friend + a.Topic + a.Trending + a.Random
}

// Allocate turns a profile into query limits. Discovery gets whatever the
// friend and topic slices leave of poolSize. The friend and topic slices are
// capped a second time at query level.
func Allocate(poolSize int, profile InterestProfile, p Params) Allocation {
	friendLimit := floorInt(float64(poolSize) * profile.Friend)
	topicLimit := floorInt(float64(poolSize) * profile.Topic)
	discovery := max(poolSize-friendLimit-topicLimit, 0)

	trending := floorInt(float64(discovery) * trendingShare)
	if trending == 0 {
		trending = p.TrendingCount
	}
	random := floorInt(float64(discovery) * randomShare)
	if random == 0 {
		random = p.RandomCount
	}

	return Allocation{
		Friend:   floorInt(float64(friendLimit) * friendQueryShare),
		Topic:    floorInt(float64(topicLimit) * topicQueryShare),
		Trending: trending,
		Random:   random,
	}
}

func floorInt(v float64) int {
	return int(math.Floor(v))
}
