package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"tera/internal/database"
	"tera/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB returns a postgres-dialect gorm handle backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a migrated in-memory database private to the test.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// fixture builds a small social graph directly through gorm.
type fixture struct {
	t   *testing.T
	db  *gorm.DB
	now time.Time
}

func newFixture(t *testing.T, db *gorm.DB) *fixture {
	return &fixture{t: t, db: db, now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (f *fixture) user(id string) string {
	require.NoError(f.t, f.db.Create(&models.User{
		ID: id, Name: strings.ToUpper(id), Username: id, Email: id + "@example.com",
	}).Error)
	return id
}

func (f *fixture) friends(a, b string, status models.FriendshipStatus) {
	require.NoError(f.t, f.db.Create(&models.Friendship{
		UserID: a, FriendID: b, Status: status, ActionUserID: a,
	}).Error)
}

func (f *fixture) post(id, author string, age time.Duration) string {
	created := f.now.Add(-age)
	require.NoError(f.t, f.db.Create(&models.Post{
		ID: id, AuthorID: author, Content: []byte(`{"text":"` + id + `"}`),
		CreatedAt: created, UpdatedAt: created,
	}).Error)
	return id
}

func (f *fixture) tag(postID, hashtagID string) {
	var count int64
	f.db.Model(&models.Hashtag{}).Where("id = ?", hashtagID).Count(&count)
	if count == 0 {
		require.NoError(f.t, f.db.Create(&models.Hashtag{ID: hashtagID, Tag: "tag-" + hashtagID}).Error)
	}
	require.NoError(f.t, f.db.Create(&models.PostHashtag{PostID: postID, HashtagID: hashtagID}).Error)
}

func (f *fixture) react(userID, postID string) {
	require.NoError(f.t, f.db.Create(&models.PostReaction{
		UserID: userID, PostID: postID, ReactionID: "like", CreatedAt: f.now,
	}).Error)
}

func (f *fixture) comment(userID, postID string) {
	require.NoError(f.t, f.db.Create(&models.Comment{
		PostID: postID, AuthorID: userID, Content: "nice", CreatedAt: f.now,
	}).Error)
}

func (f *fixture) authorAffinity(viewer, author string, score int) {
	require.NoError(f.t, f.db.Create(&models.UserAffinity{
		SourceUserID: viewer, TargetUserID: author, Score: score,
	}).Error)
}

func (f *fixture) hashtagAffinity(viewer, hashtagID string, score int) {
	require.NoError(f.t, f.db.Create(&models.UserHashtagAffinity{
		UserID: viewer, HashtagID: hashtagID, Score: score,
	}).Error)
}
