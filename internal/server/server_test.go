package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tera/internal/config"
	"tera/internal/database"
	"tera/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "server-test-secret-that-is-long-enough"

func setupTestServer(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("FEATURE_FLAGS", "feed_seen_filter=on")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	app := NewApp()
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app, db
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func request(t *testing.T, app *fiber.App, target, auth string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func seedNetwork(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, id := range []string{"viewer", "friend", "stranger"} {
		require.NoError(t, db.Create(&models.User{
			ID: id, Name: id, Username: id, Email: id + "@example.com",
		}).Error)
	}
	require.NoError(t, db.Create(&models.Friendship{
		UserID: "viewer", FriendID: "friend", Status: models.FriendshipStatusAccepted, ActionUserID: "viewer",
	}).Error)

	now := time.Now().UTC()
	for i, author := range []string{"friend", "friend", "stranger"} {
		created := now.Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, db.Create(&models.Post{
			ID:        fmt.Sprintf("post-%d", i),
			AuthorID:  author,
			Content:   []byte(`{"text":"hello"}`),
			CreatedAt: created,
			UpdatedAt: created,
		}).Error)
	}
	require.NoError(t, db.Create(&models.PostReaction{
		UserID: "stranger", PostID: "post-0", ReactionID: "like", CreatedAt: now,
	}).Error)
}

func TestHealthChecks(t *testing.T) {
	app, _ := setupTestServer(t)

	resp, body := request(t, app, "/health/live", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = request(t, app, "/health/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]any{"database": "healthy", "redis": "unavailable"}, body["checks"])
}

func TestFeedRequiresToken(t *testing.T) {
	app, _ := setupTestServer(t)

	resp, body := request(t, app, "/api/feed", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authorization header required", body["error"])

	resp, _ = request(t, app, "/api/feed", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHomeFeed_EndToEnd(t *testing.T) {
	app, db := setupTestServer(t)
	seedNetwork(t, db)

	resp, body := request(t, app, "/api/feed?limit=10", bearer(t, "viewer"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	posts := body["posts"].([]any)
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.(map[string]any)["id"].(string))
	}
	assert.ElementsMatch(t, []string{"post-0", "post-1", "post-2"}, ids)
	assert.Nil(t, body["nextCursor"])

	var viewer models.User
	require.NoError(t, db.First(&viewer, "id = ?", "viewer").Error)
	require.NotNil(t, viewer.LastActiveAt, "serving a page records viewer activity")
}

func TestHomeFeed_UnknownViewer(t *testing.T) {
	app, _ := setupTestServer(t)

	resp, body := request(t, app, "/api/feed", bearer(t, "ghost"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestProfileFeed_EndToEnd(t *testing.T) {
	app, db := setupTestServer(t)
	seedNetwork(t, db)

	resp, body := request(t, app, "/api/users/friend/posts?limit=1", bearer(t, "viewer"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	posts := body["posts"].([]any)
	require.Len(t, posts, 1)
	first := posts[0].(map[string]any)
	assert.Equal(t, "post-0", first["id"])
	assert.Equal(t, "author", first["source"])
	require.NotNil(t, body["nextCursor"])

	resp, body = request(t, app, "/api/users/friend/posts?limit=1&cursor="+body["nextCursor"].(string), bearer(t, "viewer"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts = body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "post-1", posts[0].(map[string]any)["id"])
}

func TestGetFeatureFlags(t *testing.T) {
	app, db := setupTestServer(t)
	seedNetwork(t, db)

	resp, body := request(t, app, "/api/feature-flags", bearer(t, "viewer"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"feed_seen_filter": "on"}, body["raw"])
	assert.Equal(t, map[string]any{"feed_seen_filter": true}, body["evaluated"])
}
