package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"tera/internal/models"
	"tera/internal/observability"

	"gorm.io/gorm"
)

// FeedReader is the read surface used while sourcing candidates. Inside a
// snapshot every call shares one transaction.
type FeedReader interface {
	// FriendIDs returns the viewer's accepted friends, in either direction.
	FriendIDs(ctx context.Context, viewerID string) ([]string, error)
	// AuthorAffinityRows returns every author affinity row owned by the viewer.
	AuthorAffinityRows(ctx context.Context, viewerID string) ([]models.UserAffinity, error)
	FriendPostIDs(ctx context.Context, viewerID string, limit int) ([]string, error)
	TopicPostIDs(ctx context.Context, viewerID string, hashtagLimit, limit int) ([]string, error)
	TrendingPostIDs(ctx context.Context, q TrendingQuery) ([]string, error)
	RandomPostIDs(ctx context.Context, viewerID string, limit int) ([]string, error)
	// PostsByIDs hydrates posts and returns them in the order of ids. Unknown
	// IDs are skipped.
	PostsByIDs(ctx context.Context, ids []string, viewerID string) ([]models.CandidatePost, error)
	// Recoverable runs fn behind a savepoint when inside a snapshot, so an
	// error from fn leaves the transaction usable for later reads.
	Recoverable(ctx context.Context, name string, fn func(FeedReader) error) error
}

// FeedRepository is everything the ranking engine reads.
type FeedRepository interface {
	FeedReader
	// ReadSnapshot runs fn against a read-only transaction. Calls made through
	// the FeedReader are serialized because a transaction owns one connection.
	ReadSnapshot(ctx context.Context, fn func(FeedReader) error) error
	AuthorAffinities(ctx context.Context, viewerID string, authorIDs []string) (map[string]int, error)
	HashtagAffinities(ctx context.Context, viewerID string, hashtagIDs []string) (map[string]int, error)
	// ReEngagementPostIDs returns friends' posts since the given time ranked
	// by reactions*1 + comments*3.
	ReEngagementPostIDs(ctx context.Context, viewerID string, since time.Time, limit int) ([]string, error)
	PostsByAuthor(ctx context.Context, q AuthorPostsQuery) ([]models.CandidatePost, error)
}

// TrendingQuery selects recent posts with positive weighted engagement.
type TrendingQuery struct {
	ViewerID       string
	Since          time.Time
	ReactionWeight float64
	CommentWeight  float64
	Limit          int
}

// AuthorPostsQuery pages through one author's posts by creation time.
type AuthorPostsQuery struct {
	AuthorID string
	ViewerID string
	// Cursor excludes posts at or beyond this timestamp in paging direction.
	Cursor *time.Time
	Oldest bool
	Limit  int
}

const (
	postsTable    = "posts"
	affinityTable = "user_affinities"
)

type feedRepository struct {
	db  *gorm.DB
	mu  *sync.Mutex
	log *observability.RepoLogger
}

// NewFeedRepository returns a FeedRepository reading from the replica when
// one is configured.
func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db, log: observability.NewRepoLogger(postsTable)}
}

// conn returns the handle to query with and a release func. Inside a snapshot
// the handle is the transaction and the release unlocks it.
func (r *feedRepository) conn(ctx context.Context) (*gorm.DB, func()) {
	if r.mu != nil {
		r.mu.Lock()
		return r.db.WithContext(ctx), r.mu.Unlock
	}
	return readDB(r.db).WithContext(ctx), func() {}
}

func (r *feedRepository) fail(ctx context.Context, op string, err error) error {
	r.log.LogError(ctx, err, op)
	return models.NewInternalError(err)
}

func (r *feedRepository) ReadSnapshot(ctx context.Context, fn func(FeedReader) error) error {
	db := readDB(r.db).WithContext(ctx)
	run := func(tx *gorm.DB) error {
		return fn(&feedRepository{db: tx, mu: &sync.Mutex{}, log: r.log})
	}

	if db.Dialector.Name() == "postgres" {
		return db.Transaction(run, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return db.Transaction(run)
}

func (r *feedRepository) Recoverable(ctx context.Context, name string, fn func(FeedReader) error) error {
	if r.mu == nil {
		return fn(r)
	}

	db, release := r.conn(ctx)
	err := db.Exec("SAVEPOINT " + name).Error
	release()
	if err != nil {
		return r.fail(ctx, "SavePoint", err)
	}

	fnErr := fn(r)
	if fnErr == nil {
		return nil
	}

	db, release = r.conn(ctx)
	err = db.Exec("ROLLBACK TO SAVEPOINT " + name).Error
	release()
	if err != nil {
		return errors.Join(fnErr, r.fail(ctx, "RollbackTo", err))
	}
	return fnErr
}

func (r *feedRepository) FriendIDs(ctx context.Context, viewerID string) ([]string, error) {
	defer observability.TrackQuery("FriendIDs", "friendships")()
	db, release := r.conn(ctx)
	defer release()

	var ids []string
	err := db.Raw(`SELECT CASE WHEN user_id = ? THEN friend_id ELSE user_id END
		FROM friendships
		WHERE status = ? AND (user_id = ? OR friend_id = ?)`,
		viewerID, models.FriendshipStatusAccepted, viewerID, viewerID).
		Scan(&ids).Error
	if err != nil {
		return nil, r.fail(ctx, "FriendIDs", err)
	}
	return ids, nil
}

func (r *feedRepository) AuthorAffinityRows(ctx context.Context, viewerID string) ([]models.UserAffinity, error) {
	defer observability.TrackQuery("AuthorAffinityRows", affinityTable)()
	db, release := r.conn(ctx)
	defer release()

	var rows []models.UserAffinity
	if err := db.Where("source_user_id = ?", viewerID).Find(&rows).Error; err != nil {
		return nil, r.fail(ctx, "AuthorAffinityRows", err)
	}
	return rows, nil
}

func (r *feedRepository) FriendPostIDs(ctx context.Context, viewerID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	defer observability.TrackQuery("FriendPostIDs", postsTable)()
	db, release := r.conn(ctx)
	defer release()

	var ids []string
	err := db.Model(&models.Post{}).
		Joins(`JOIN friendships f ON f.status = ? AND
			((f.user_id = ? AND f.friend_id = posts.author_id) OR (f.friend_id = ? AND f.user_id = posts.author_id))`,
			models.FriendshipStatusAccepted, viewerID, viewerID).
		Order("posts.created_at DESC").
		Limit(limit).
		Pluck("posts.id", &ids).Error
	if err != nil {
		return nil, r.fail(ctx, "FriendPostIDs", err)
	}
	return ids, nil
}

func (r *feedRepository) TopicPostIDs(ctx context.Context, viewerID string, hashtagLimit, limit int) ([]string, error) {
	if limit <= 0 || hashtagLimit <= 0 {
		return nil, nil
	}
	defer observability.TrackQuery("TopicPostIDs", postsTable)()
	db, release := r.conn(ctx)
	defer release()

	// Interest hashtags: tags on posts the viewer reacted to or commented on,
	// most interacted first.
	var hashtagIDs []string
	err := db.Raw(`SELECT ph.hashtag_id FROM post_hashtags ph
		WHERE ph.post_id IN (SELECT post_id FROM post_reactions WHERE user_id = ?)
		   OR ph.post_id IN (SELECT post_id FROM comments WHERE author_id = ?)
		GROUP BY ph.hashtag_id
		ORDER BY COUNT(*) DESC, ph.hashtag_id
		LIMIT ?`, viewerID, viewerID, hashtagLimit).
		Scan(&hashtagIDs).Error
	if err != nil {
		return nil, r.fail(ctx, "TopicPostIDs", err)
	}
	if len(hashtagIDs) == 0 {
		return nil, nil
	}

	var ids []string
	err = db.Raw(`SELECT p.id FROM posts p
		JOIN post_hashtags ph ON ph.post_id = p.id
		WHERE ph.hashtag_id IN ? AND p.author_id <> ?
		GROUP BY p.id, p.created_at
		ORDER BY p.created_at DESC
		LIMIT ?`, hashtagIDs, viewerID, limit).
		Scan(&ids).Error
	if err != nil {
		return nil, r.fail(ctx, "TopicPostIDs", err)
	}
	return ids, nil
}

// engagementJoins pre-aggregates reaction and comment counts per post so the
// outer query never fans out.
const engagementJoins = `
	LEFT JOIN (SELECT post_id, COUNT(*) AS n FROM post_reactions GROUP BY post_id) rc ON rc.post_id = p.id
	LEFT JOIN (SELECT post_id, COUNT(*) AS n FROM comments GROUP BY post_id) cc ON cc.post_id = p.id`

func (r *feedRepository) TrendingPostIDs(ctx context.Context, q TrendingQuery) ([]string, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	defer observability.TrackQuery("TrendingPostIDs", postsTable)()
	db, release := r.conn(ctx)
	defer release()

	var ids []string
	err := db.Raw(`SELECT p.id FROM posts p`+engagementJoins+`
		WHERE p.created_at >= ? AND p.author_id <> ?
		  AND (COALESCE(rc.n, 0) * ? + COALESCE(cc.n, 0) * ?) > 0
		ORDER BY (COALESCE(rc.n, 0) * ? + COALESCE(cc.n, 0) * ?) DESC, p.created_at DESC
		LIMIT ?`,
		q.Since, q.ViewerID,
		q.ReactionWeight, q.CommentWeight,
		q.ReactionWeight, q.CommentWeight,
		q.Limit).
		Scan(&ids).Error
	if err != nil {
		return nil, r.fail(ctx, "TrendingPostIDs", err)
	}
	return ids, nil
}

func (r *feedRepository) RandomPostIDs(ctx context.Context, viewerID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	defer observability.TrackQuery("RandomPostIDs", postsTable)()
	db, release := r.conn(ctx)
	defer release()

	var ids []string
	err := db.Model(&models.Post{}).
		Where("author_id <> ?", viewerID).
		Order("RANDOM()").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, r.fail(ctx, "RandomPostIDs", err)
	}
	return ids, nil
}

// withDetails selects the post row plus live engagement counts and the
// viewer's own reaction, and preloads everything a feed card renders.
func withDetails(db *gorm.DB, viewerID string) *gorm.DB {
	return db.Model(&models.Post{}).
		Select(`posts.*,
			(SELECT COUNT(*) FROM post_reactions pr WHERE pr.post_id = posts.id) AS reaction_count,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id) AS comment_count,
			(SELECT COUNT(*) FROM posts sp WHERE sp.shared_post_id = posts.id) AS share_count,
			(SELECT vr.reaction_id FROM post_reactions vr WHERE vr.post_id = posts.id AND vr.user_id = ?) AS current_user_reaction_id`,
			viewerID).
		Preload("Author", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "username", "image")
		}).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Hashtags").
		Preload("LinkPreview")
}

func (r *feedRepository) PostsByIDs(ctx context.Context, ids []string, viewerID string) ([]models.CandidatePost, error) {
	if len(ids) == 0 {
		return []models.CandidatePost{}, nil
	}
	defer observability.TrackQuery("PostsByIDs", postsTable)()
	db, release := r.conn(ctx)
	defer release()

	start := time.Now()
	var posts []models.Post
	if err := withDetails(db, viewerID).Where("posts.id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, r.fail(ctx, "PostsByIDs", err)
	}
	r.log.LogRead(ctx, "PostsByIDs", len(posts), time.Since(start))

	byID := make(map[string]*models.Post, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
	}
	out := make([]models.CandidatePost, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p.ToCandidate())
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *feedRepository) AuthorAffinities(ctx context.Context, viewerID string, authorIDs []string) (map[string]int, error) {
	out := make(map[string]int)
	if len(authorIDs) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("AuthorAffinities", affinityTable)()
	db, release := r.conn(ctx)
	defer release()

	var rows []models.UserAffinity
	err := db.Where("source_user_id = ? AND target_user_id IN ?", viewerID, authorIDs).Find(&rows).Error
	if err != nil {
		return nil, r.fail(ctx, "AuthorAffinities", err)
	}
	for _, row := range rows {
		out[row.TargetUserID] = row.Score
	}
	return out, nil
}

func (r *feedRepository) HashtagAffinities(ctx context.Context, viewerID string, hashtagIDs []string) (map[string]int, error) {
	out := make(map[string]int)
	if len(hashtagIDs) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("HashtagAffinities", "user_hashtag_affinities")()
	db, release := r.conn(ctx)
	defer release()

	var rows []models.UserHashtagAffinity
	err := db.Where("user_id = ? AND hashtag_id IN ?", viewerID, hashtagIDs).Find(&rows).Error
	if err != nil {
		return nil, r.fail(ctx, "HashtagAffinities", err)
	}
	for _, row := range rows {
		out[row.HashtagID] = row.Score
	}
	return out, nil
}

func (r *feedRepository) ReEngagementPostIDs(ctx context.Context, viewerID string, since time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	defer observability.TrackQuery("ReEngagementPostIDs", postsTable)()
	db, release := r.conn(ctx)
	defer release()

	var ids []string
	err := db.Raw(`SELECT p.id FROM posts p
		JOIN friendships f ON f.status = ? AND
			((f.user_id = ? AND f.friend_id = p.author_id) OR (f.friend_id = ? AND f.user_id = p.author_id))`+
		engagementJoins+`
		WHERE p.created_at >= ?
		ORDER BY (COALESCE(rc.n, 0) + COALESCE(cc.n, 0) * 3) DESC, p.created_at DESC
		LIMIT ?`,
		models.FriendshipStatusAccepted, viewerID, viewerID, since, limit).
		Scan(&ids).Error
	if err != nil {
		return nil, r.fail(ctx, "ReEngagementPostIDs", err)
	}
	return ids, nil
}

func (r *feedRepository) PostsByAuthor(ctx context.Context, q AuthorPostsQuery) ([]models.CandidatePost, error) {
	if q.Limit <= 0 {
		return []models.CandidatePost{}, nil
	}
	defer observability.TrackQuery("PostsByAuthor", postsTable)()
	db, release := r.conn(ctx)
	defer release()

	tx := withDetails(db, q.ViewerID).Where("posts.author_id = ?", q.AuthorID)
	if q.Oldest {
		if q.Cursor != nil {
			tx = tx.Where("posts.created_at > ?", *q.Cursor)
		}
		tx = tx.Order("posts.created_at ASC").Order("posts.id ASC")
	} else {
		if q.Cursor != nil {
			tx = tx.Where("posts.created_at < ?", *q.Cursor)
		}
		tx = tx.Order("posts.created_at DESC").Order("posts.id DESC")
	}

	var posts []models.Post
	if err := tx.Limit(q.Limit).Find(&posts).Error; err != nil {
		return nil, r.fail(ctx, "PostsByAuthor", err)
	}

	out := make([]models.CandidatePost, len(posts))
	for i := range posts {
		out[i] = posts[i].ToCandidate()
	}
	return out, nil
}
