package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"moodboard-backend/internal/model"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a :memory: database lives on a single connection
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Room{},
		&model.ChatMessage{},
		&model.Board{},
		&model.BoardIteration{},
		&model.Image{},
		&model.ImageFeedback{},
		&model.Keyword{},
		&model.KeywordVote{},
		&model.Thread{},
	))
	return db
}

// seedRoomAndBoard creates one room with one board for tests to build on.
func seedRoomAndBoard(t *testing.T, db *gorm.DB) (*model.Room, *model.Board) {
	t.Helper()

	room := &model.Room{Name: "Q3 campaign", JoinCode: "AAAA22"}
	require.NoError(t, db.Create(room).Error)

	board := &model.Board{RoomID: room.ID, Name: "draft 1"}
	require.NoError(t, db.Create(board).Error)
	return room, board
}

func ptr[T any](v T) *T {
	return &v
}
