package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"tera/internal/cache"
	"tera/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID(t *testing.T) {
	cache.SetClient(nil)
	lastActive := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		userID       string
		mockBehavior func(mock sqlmock.Sqlmock)
		wantCode     string
	}{
		{
			name:   "found",
			userID: "u1",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("u1", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username", "last_active_at"}).
						AddRow("u1", "Ada", "ada", lastActive))
			},
		},
		{
			name:   "not found",
			userID: "nobody",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
					WithArgs("nobody", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantCode: "NOT_FOUND",
		},
		{
			name:   "database error",
			userID: "u1",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tt.mockBehavior(mock)

			user, err := NewUserRepository(db).GetByID(context.Background(), tt.userID)
			if tt.wantCode != "" {
				var appErr *models.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantCode, appErr.Code)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Ada", user.Name)
				require.NotNil(t, user.LastActiveAt)
				assert.True(t, lastActive.Equal(user.LastSeen()))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByID_CachesProfile(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	db, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WithArgs("u1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username"}).AddRow("u1", "Ada", "ada"))

	repo := NewUserRepository(db)
	first, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	second, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.True(t, mr.Exists(cache.UserKey("u1")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_TouchLastActive(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := setupSQLiteDB(t)
	f := newFixture(t, db)
	f.user("viewer")
	repo := NewUserRepository(db)

	before, err := repo.GetByID(context.Background(), "viewer")
	require.NoError(t, err)
	assert.Nil(t, before.LastActiveAt)
	require.True(t, mr.Exists(cache.UserKey("viewer")))

	require.NoError(t, repo.TouchLastActive(context.Background(), "viewer", f.now))
	assert.False(t, mr.Exists(cache.UserKey("viewer")))

	after, err := repo.GetByID(context.Background(), "viewer")
	require.NoError(t, err)
	require.NotNil(t, after.LastActiveAt)
	assert.True(t, f.now.Equal(*after.LastActiveAt))
}

func TestUserRepository_TouchLastActive_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "last_active_at"=$1 WHERE id = $2`)).
		WillReturnError(errors.New("read-only transaction"))
	mock.ExpectRollback()

	err := NewUserRepository(db).TouchLastActive(context.Background(), "u1", time.Now())
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
}
