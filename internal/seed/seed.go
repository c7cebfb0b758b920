// Package seed fills a database with a synthetic social graph so the feed
// has something to rank. Development and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tera/internal/models"
	"tera/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// Options controls how much data the seeder writes.
type Options struct {
	Users    int
	Posts    int
	Hashtags int
	// MaxDays spreads post timestamps over the last MaxDays days.
	MaxDays int
	// FriendsPerUser is the average number of accepted friendships.
	FriendsPerUser int
	// Seed fixes the generator; 0 picks one from the clock.
	Seed  int64
	Clean bool
}

// DefaultOptions is a small demo network.
func DefaultOptions() Options {
	return Options{
		Users:          50,
		Posts:          400,
		Hashtags:       30,
		MaxDays:        14,
		FriendsPerUser: 6,
	}
}

// Summary reports what a run wrote.
type Summary struct {
	Users             int
	Friendships       int
	Hashtags          int
	Posts             int
	Reactions         int
	Comments          int
	AuthorAffinities  int
	HashtagAffinities int
}

// Seeder writes fake data through gorm.
type Seeder struct {
	db   *gorm.DB
	fake *gofakeit.Faker
	opts Options
	now  time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 14
	}
	return &Seeder{db: db, fake: gofakeit.New(seed), opts: opts, now: time.Now().UTC()}
}

// Run seeds users, the friend graph, hashtags, posts, engagement and the
// affinity tables derived from that engagement.
func (s *Seeder) Run() (*Summary, error) {
	if s.opts.Clean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	sum := &Summary{}
	users, err := s.seedUsers(s.opts.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	sum.Users = len(users)

	if sum.Friendships, err = s.seedFriendships(users); err != nil {
		return nil, fmt.Errorf("failed to seed friendships: %w", err)
	}

	tags, err := s.seedHashtags(s.opts.Hashtags)
	if err != nil {
		return nil, fmt.Errorf("failed to seed hashtags: %w", err)
	}
	sum.Hashtags = len(tags)

	posts, postTags, err := s.seedPosts(users, tags, s.opts.Posts)
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}
	sum.Posts = len(posts)

	eng, err := s.seedEngagement(users, posts)
	if err != nil {
		return nil, fmt.Errorf("failed to seed engagement: %w", err)
	}
	sum.Reactions = len(eng.reactions)
	sum.Comments = len(eng.comments)

	sum.AuthorAffinities, sum.HashtagAffinities, err = s.seedAffinities(posts, postTags, eng)
	if err != nil {
		return nil, fmt.Errorf("failed to seed affinities: %w", err)
	}

	observability.Logger.Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("friendships", sum.Friendships),
		slog.Int("posts", sum.Posts),
		slog.Int("reactions", sum.Reactions),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}

// ClearAll removes every seeded row, children first.
func (s *Seeder) ClearAll() error {
	tables := []any{
		&models.UserHashtagAffinity{},
		&models.UserAffinity{},
		&models.Comment{},
		&models.PostReaction{},
		&models.LinkPreview{},
		&models.PostMedia{},
		&models.PostHashtag{},
		&models.Post{},
		&models.Hashtag{},
		&models.Friendship{},
		&models.User{},
	}
	for _, m := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", m, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(n int) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		lastActive := s.randomTime(s.opts.MaxDays * 2)
		username := fmt.Sprintf("%s%d", strings.ToLower(s.fake.Username()), i)
		users = append(users, models.User{
			Name:         s.fake.Name(),
			Username:     username,
			Email:        username + "@example.com",
			Image:        fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.fake.UUID()),
			LastActiveAt: &lastActive,
		})
	}
	if len(users) == 0 {
		return users, nil
	}
	return users, s.db.CreateInBatches(&users, 100).Error
}

// seedFriendships writes one row per unordered pair. About one in eight
// edges is left pending.
func (s *Seeder) seedFriendships(users []models.User) (int, error) {
	if len(users) < 2 || s.opts.FriendsPerUser <= 0 {
		return 0, nil
	}
	seen := make(map[[2]int]bool)
	var rows []models.Friendship
	for i := range users {
		for k := 0; k < s.opts.FriendsPerUser/2+1; k++ {
			j := s.fake.Number(0, len(users)-1)
			if i == j {
				continue
			}
			pair := [2]int{min(i, j), max(i, j)}
			if seen[pair] {
				continue
			}
			seen[pair] = true

			status := models.FriendshipStatusAccepted
			if s.fake.Number(1, 8) == 1 {
				status = models.FriendshipStatusPending
			}
			rows = append(rows, models.Friendship{
				UserID:       users[i].ID,
				FriendID:     users[j].ID,
				Status:       status,
				ActionUserID: users[i].ID,
			})
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return len(rows), s.db.CreateInBatches(&rows, 200).Error
}

func (s *Seeder) seedHashtags(n int) ([]models.Hashtag, error) {
	used := make(map[string]bool, n)
	tags := make([]models.Hashtag, 0, n)
	for len(tags) < n {
		tag := strings.ToLower(s.fake.Noun())
		if used[tag] {
			tag = fmt.Sprintf("%s%d", tag, len(tags))
		}
		if used[tag] {
			continue
		}
		used[tag] = true
		tags = append(tags, models.Hashtag{Tag: tag})
	}
	if len(tags) == 0 {
		return tags, nil
	}
	return tags, s.db.CreateInBatches(&tags, 100).Error
}

type postContent struct {
	Text string `json:"text"`
}

func (s *Seeder) seedPosts(users []models.User, tags []models.Hashtag, n int) ([]models.Post, map[string][]string, error) {
	postTags := make(map[string][]string)
	if len(users) == 0 || n <= 0 {
		return nil, postTags, nil
	}

	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		body, err := json.Marshal(postContent{Text: s.fake.Paragraph(1, 2, 12, " ")})
		if err != nil {
			return nil, nil, err
		}
		created := s.randomTime(s.opts.MaxDays)
		post := models.Post{
			AuthorID:  users[s.fake.Number(0, len(users)-1)].ID,
			Content:   body,
			CreatedAt: created,
			UpdatedAt: created,
		}
		switch s.fake.Number(1, 6) {
		case 1:
			post.Media = []models.PostMedia{{
				URL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.fake.UUID()),
				Type: "image",
			}}
		case 2:
			post.LinkPreview = &models.LinkPreview{
				URL:   s.fake.URL(),
				Title: s.fake.Sentence(5),
			}
		}
		posts = append(posts, post)
	}
	if err := s.db.CreateInBatches(&posts, 100).Error; err != nil {
		return nil, nil, err
	}

	if len(tags) == 0 {
		return posts, postTags, nil
	}
	var joins []models.PostHashtag
	for _, p := range posts {
		picked := make(map[string]bool)
		for k := s.fake.Number(0, 3); k > 0; k-- {
			tag := tags[s.fake.Number(0, len(tags)-1)]
			if picked[tag.ID] {
				continue
			}
			picked[tag.ID] = true
			postTags[p.ID] = append(postTags[p.ID], tag.ID)
			joins = append(joins, models.PostHashtag{PostID: p.ID, HashtagID: tag.ID})
		}
	}
	if len(joins) > 0 {
		if err := s.db.CreateInBatches(&joins, 200).Error; err != nil {
			return nil, nil, err
		}
	}
	return posts, postTags, nil
}

type engagement struct {
	reactions []models.PostReaction
	comments  []models.Comment
}

func (s *Seeder) seedEngagement(users []models.User, posts []models.Post) (*engagement, error) {
	eng := &engagement{}
	if len(users) == 0 || len(posts) == 0 {
		return eng, nil
	}

	reactionTypes := []string{"like", "love", "laugh", "wow"}
	reacted := make(map[[2]string]bool)
	for _, p := range posts {
		for k := s.fake.Number(0, 6); k > 0; k-- {
			u := users[s.fake.Number(0, len(users)-1)]
			key := [2]string{u.ID, p.ID}
			if u.ID == p.AuthorID || reacted[key] {
				continue
			}
			reacted[key] = true
			eng.reactions = append(eng.reactions, models.PostReaction{
				UserID:     u.ID,
				PostID:     p.ID,
				ReactionID: reactionTypes[s.fake.Number(0, len(reactionTypes)-1)],
				CreatedAt:  s.after(p.CreatedAt),
			})
		}
		for k := s.fake.Number(0, 2); k > 0; k-- {
			u := users[s.fake.Number(0, len(users)-1)]
			if u.ID == p.AuthorID {
				continue
			}
			eng.comments = append(eng.comments, models.Comment{
				PostID:    p.ID,
				AuthorID:  u.ID,
				Content:   s.fake.Sentence(8),
				CreatedAt: s.after(p.CreatedAt),
			})
		}
	}

	if len(eng.reactions) > 0 {
		if err := s.db.CreateInBatches(&eng.reactions, 200).Error; err != nil {
			return nil, err
		}
	}
	if len(eng.comments) > 0 {
		if err := s.db.CreateInBatches(&eng.comments, 200).Error; err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// seedAffinities derives the tracker tables from the generated engagement:
// a reaction is worth 1 and a comment 3, credited to the post's author and
// to each of its hashtags.
func (s *Seeder) seedAffinities(posts []models.Post, postTags map[string][]string, eng *engagement) (int, int, error) {
	authorOf := make(map[string]string, len(posts))
	for _, p := range posts {
		authorOf[p.ID] = p.AuthorID
	}

	authorScore := make(map[[2]string]int)
	tagScore := make(map[[2]string]int)
	credit := func(userID, postID string, points int) {
		authorScore[[2]string{userID, authorOf[postID]}] += points
		for _, tagID := range postTags[postID] {
			tagScore[[2]string{userID, tagID}] += points
		}
	}
	for _, r := range eng.reactions {
		credit(r.UserID, r.PostID, 1)
	}
	for _, c := range eng.comments {
		credit(c.AuthorID, c.PostID, 3)
	}

	authorRows := make([]models.UserAffinity, 0, len(authorScore))
	for k, score := range authorScore {
		authorRows = append(authorRows, models.UserAffinity{
			SourceUserID: k[0], TargetUserID: k[1], Score: score, UpdatedAt: s.now,
		})
	}
	tagRows := make([]models.UserHashtagAffinity, 0, len(tagScore))
	for k, score := range tagScore {
		tagRows = append(tagRows, models.UserHashtagAffinity{
			UserID: k[0], HashtagID: k[1], Score: score, UpdatedAt: s.now,
		})
	}

	if len(authorRows) > 0 {
		if err := s.db.CreateInBatches(&authorRows, 200).Error; err != nil {
			return 0, 0, err
		}
	}
	if len(tagRows) > 0 {
		if err := s.db.CreateInBatches(&tagRows, 200).Error; err != nil {
			return 0, 0, err
		}
	}
	return len(authorRows), len(tagRows), nil
}

func (s *Seeder) randomTime(maxDays int) time.Time {
	return s.fake.DateRange(s.now.Add(-time.Duration(maxDays)*24*time.Hour), s.now).UTC()
}

// after returns a time between t and now.
func (s *Seeder) after(t time.Time) time.Time {
	if !t.Before(s.now) {
		return s.now
	}
	return s.fake.DateRange(t, s.now).UTC()
}
