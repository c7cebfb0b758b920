package models

import (
	"time"

	"gorm.io/datatypes"
)

// PostSource names the sourcing pool a candidate was drawn from.
type PostSource string

const (
	SourceFriend       PostSource = "friend"
	SourceTopic        PostSource = "topic"
	SourceTrending     PostSource = "trending"
	SourceDiscovery    PostSource = "discovery"
	SourceReEngagement PostSource = "reengagement"
	SourceAuthor       PostSource = "author"
)

// AuthorSummary is the slice of a user that travels with every feed post.
type AuthorSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Username string `json:"username"`
}

// HashtagSummary is a hashtag reference on a feed post.
type HashtagSummary struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

// CandidatePost is a hydrated post eligible for ranking.
type CandidatePost struct {
	ID                    string           `json:"id"`
	Author                AuthorSummary    `json:"author"`
	Content               datatypes.JSON   `json:"content"`
	VisibilityID          string           `json:"visibilityId,omitempty"`
	SharedPostID          *string          `json:"sharedPostId,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
	Media                 []PostMedia      `json:"media"`
	Hashtags              []HashtagSummary `json:"hashtags"`
	LinkPreview           *LinkPreview     `json:"linkPreview,omitempty"`
	ReactionCount         int              `json:"reactionCount"`
	CommentCount          int              `json:"commentCount"`
	ShareCount            int              `json:"shareCount"`
	CurrentUserReactionID *string          `json:"currentUserReactionId,omitempty"`
	Source                PostSource       `json:"source,omitempty"`
}

// RankedPost is a candidate with its computed score.
type RankedPost struct {
	CandidatePost
	Score float64 `json:"_score"`
}

// FeedResult is one page of a feed. NextCursor is nil when nothing remains.
type FeedResult struct {
	Posts      []RankedPost `json:"posts"`
	NextCursor *string      `json:"nextCursor"`
}

// EmptyFeed is the degraded result: no posts and no continuation.
func EmptyFeed() *FeedResult {
	return &FeedResult{Posts: []RankedPost{}}
}

// ToCandidate flattens a hydrated Post row into the feed shape.
func (p *Post) ToCandidate() CandidatePost {
	tags := make([]HashtagSummary, 0, len(p.Hashtags))
	for _, h := range p.Hashtags {
		tags = append(tags, HashtagSummary{ID: h.ID, Tag: h.Tag})
	}
	media := p.Media
	if media == nil {
		media = []PostMedia{}
	}
	return CandidatePost{
		ID: p.ID,
		Author: AuthorSummary{
			ID:       p.Author.ID,
			Name:     p.Author.Name,
			Image:    p.Author.Image,
			Username: p.Author.Username,
		},
		Content:               p.Content,
		VisibilityID:          p.VisibilityID,
		SharedPostID:          p.SharedPostID,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
		Media:                 media,
		Hashtags:              tags,
		LinkPreview:           p.LinkPreview,
		ReactionCount:         p.ReactionCount,
		CommentCount:          p.CommentCount,
		ShareCount:            p.ShareCount,
		CurrentUserReactionID: p.CurrentUserReactionID,
	}
}
