package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ratingbot/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory
	// database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Message{}))
	return db
}

func TestCreateAndGetByID(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	err := repo.Create(&models.Message{ID: 10, ChatID: 7, Timestamp: 1000})
	require.NoError(t, err)

	msg, err := repo.GetByID(10)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, int64(10), msg.ID)
	assert.Equal(t, int64(7), msg.ChatID)
	assert.Equal(t, int64(0), msg.Rating)
	assert.Equal(t, int64(1000), msg.Timestamp)
}

func TestGetByIDMissing(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	msg, err := repo.GetByID(42)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestCreateDuplicate(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	require.NoError(t, repo.Create(&models.Message{ID: 10, ChatID: 7, Timestamp: 1000}))

	err := repo.Create(&models.Message{ID: 10, ChatID: 7, Timestamp: 1000})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestIncrementRating(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	require.NoError(t, repo.Create(&models.Message{ID: 10, ChatID: 7, Timestamp: 1000}))

	affected, err := repo.IncrementRating(10)
	require.NoError(t, err)
	assert.True(t, affected)

	affected, err = repo.IncrementRating(10)
	require.NoError(t, err)
	assert.True(t, affected)

	msg, err := repo.GetByID(10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), msg.Rating)
}

func TestIncrementRatingMissing(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	affected, err := repo.IncrementRating(42)
	require.NoError(t, err)
	assert.False(t, affected)
}

func TestTopRatedOrdering(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	ratings := map[int64]int64{10: 5, 11: 3, 12: 3, 13: 1, 14: 0}
	for _, id := range []int64{10, 11, 12, 13, 14} {
		require.NoError(t, repo.Create(&models.Message{ID: id, ChatID: 7, Timestamp: 1000}))
		for r := int64(0); r < ratings[id]; r++ {
			_, err := repo.IncrementRating(id)
			require.NoError(t, err)
		}
	}

	ids, err := repo.TopRated(7, 1, 0, 5)
	require.NoError(t, err)

	// Highest rating first, never including rating-0 rows. The two
	// rating-3 rows may come in either order but both rank ahead of
	// the rating-1 row.
	require.Len(t, ids, 4)
	assert.Equal(t, int64(10), ids[0])
	assert.ElementsMatch(t, []int64{11, 12}, ids[1:3])
	assert.Equal(t, int64(13), ids[3])
	assert.NotContains(t, ids, int64(14))
}

func TestTopRatedLimit(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	for id := int64(1); id <= 8; id++ {
		require.NoError(t, repo.Create(&models.Message{ID: id, ChatID: 7, Timestamp: 1000}))
		_, err := repo.IncrementRating(id)
		require.NoError(t, err)
	}

	ids, err := repo.TopRated(7, 1, 0, 5)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}

func TestTopRatedSinceFilter(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	require.NoError(t, repo.Create(&models.Message{ID: 1, ChatID: 7, Timestamp: 1000}))
	require.NoError(t, repo.Create(&models.Message{ID: 2, ChatID: 7, Timestamp: 5000}))
	for _, id := range []int64{1, 2} {
		_, err := repo.IncrementRating(id)
		require.NoError(t, err)
	}

	ids, err := repo.TopRated(7, 1, 3000, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
}

func TestTopRatedOtherChatExcluded(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	require.NoError(t, repo.Create(&models.Message{ID: 1, ChatID: 7, Timestamp: 1000}))
	require.NoError(t, repo.Create(&models.Message{ID: 2, ChatID: 8, Timestamp: 1000}))
	for _, id := range []int64{1, 2} {
		_, err := repo.IncrementRating(id)
		require.NoError(t, err)
	}

	ids, err := repo.TopRated(7, 1, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestMaxID(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	maxID, err := repo.MaxID()
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxID)

	require.NoError(t, repo.Create(&models.Message{ID: 3, ChatID: 7, Timestamp: 1000}))
	require.NoError(t, repo.Create(&models.Message{ID: 9, ChatID: 7, Timestamp: 1000}))

	maxID, err = repo.MaxID()
	require.NoError(t, err)
	assert.Equal(t, int64(9), maxID)
}
