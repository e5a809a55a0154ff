package notifications

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/serialist/serialist/internal/database/books"
	notificationsdb "github.com/serialist/serialist/internal/database/notifications"
	"github.com/serialist/serialist/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *books.Repository, *notificationsdb.Repository, func()) {
	dbPath := "./test_notifications_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Chapter{},
		&entities.Comment{},
		&entities.Pano{},
		&entities.ReadingHistory{},
		&entities.Notification{},
	)
	require.NoError(t, err)

	content := books.NewRepository(db)
	writer := notificationsdb.NewRepository(db)
	service := NewService(content, writer)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return service, content, writer, cleanup
}

var (
	ayse   = Actor{ID: 1, Username: "ayse"}
	mehmet = Actor{ID: 2, Username: "mehmet"}
)

func TestService_CommentNotifiesBookOwner(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	book, err := content.CreateBook(mehmet.ID, "Gece Treni", "")
	require.NoError(t, err)
	comment := &entities.Comment{UserID: ayse.ID, BookID: &book.ID, Text: "loved this"}
	require.NoError(t, content.CreateComment(comment))

	require.NoError(t, service.CreateCommentNotification(ayse, comment.ID))

	rows, total, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	n := rows[0]
	assert.Equal(t, entities.NotificationTypeComment, n.Type)
	assert.Equal(t, "ayse", n.ActorUsername)
	assert.Equal(t, "Gece Treni", n.BookTitle)
	require.NotNil(t, n.BookID)
	assert.Equal(t, book.ID, *n.BookID)
	require.NotNil(t, n.CommentID)
	assert.Equal(t, comment.ID, *n.CommentID)
	assert.Nil(t, n.ChapterID)
	assert.Nil(t, n.PanoID)
	assert.False(t, n.IsRead)
}

func TestService_CommentOnChapterResolvesOwnerThroughBook(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	book, err := content.CreateBook(mehmet.ID, "Gece Treni", "")
	require.NoError(t, err)
	chapter, err := content.CreateChapter(book.ID, "Bir")
	require.NoError(t, err)
	comment := &entities.Comment{UserID: ayse.ID, ChapterID: &chapter.ID, Text: "what a cliffhanger"}
	require.NoError(t, content.CreateComment(comment))

	require.NoError(t, service.CreateCommentNotification(ayse, comment.ID))

	rows, _, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ChapterID)
	assert.Equal(t, chapter.ID, *rows[0].ChapterID)
}

func TestService_SelfCommentIsSuppressed(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	book, err := content.CreateBook(ayse.ID, "Kendi Kitabim", "")
	require.NoError(t, err)
	comment := &entities.Comment{UserID: ayse.ID, BookID: &book.ID, Text: "note to self"}
	require.NoError(t, content.CreateComment(comment))

	require.NoError(t, service.CreateCommentNotification(ayse, comment.ID))

	_, total, err := writer.ListByRecipient(ayse.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestService_ChapterVoteNotifiesBookOwner(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	book, err := content.CreateBook(mehmet.ID, "Gece Treni", "")
	require.NoError(t, err)
	chapter, err := content.CreateChapter(book.ID, "Bir")
	require.NoError(t, err)

	require.NoError(t, service.CreateChapterVoteNotification(ayse, chapter.ID))

	rows, _, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, entities.NotificationTypeChapterVote, rows[0].Type)

	// The owner voting on their own chapter writes nothing.
	require.NoError(t, service.CreateChapterVoteNotification(mehmet, chapter.ID))
	_, total, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestService_ReplyNotifiesExplicitTarget(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	book, err := content.CreateBook(mehmet.ID, "Gece Treni", "")
	require.NoError(t, err)
	parent := &entities.Comment{UserID: mehmet.ID, BookID: &book.ID, Text: "thanks for reading"}
	require.NoError(t, content.CreateComment(parent))
	reply := &entities.Comment{UserID: ayse.ID, BookID: &book.ID, ParentID: &parent.ID, Text: "any time"}
	require.NoError(t, content.CreateComment(reply))

	require.NoError(t, service.CreateReplyNotification(ayse, mehmet.ID, reply.ID))

	rows, _, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, entities.NotificationTypeReply, rows[0].Type)
	require.NotNil(t, rows[0].CommentID)
	assert.Equal(t, reply.ID, *rows[0].CommentID)
	assert.Equal(t, "Gece Treni", rows[0].BookTitle)

	// Replying to yourself is suppressed by ID, not username.
	require.NoError(t, service.CreateReplyNotification(mehmet, mehmet.ID, reply.ID))
	_, total, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestService_PanoVoteAndCommentNotifyBoardOwner(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	pano, err := content.CreatePano(mehmet.ID, "okuma grubu")
	require.NoError(t, err)
	comment := &entities.Comment{UserID: ayse.ID, PanoID: &pano.ID, Text: "good pick"}
	require.NoError(t, content.CreateComment(comment))

	require.NoError(t, service.CreatePanoVoteNotification(ayse, pano.ID))
	require.NoError(t, service.CreatePanoCommentNotification(ayse, pano.ID, comment.ID))

	rows, total, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	types := []entities.NotificationType{rows[0].Type, rows[1].Type}
	assert.Contains(t, types, entities.NotificationTypePanoVote)
	assert.Contains(t, types, entities.NotificationTypePanoComment)
	for _, n := range rows {
		require.NotNil(t, n.PanoID)
		assert.Equal(t, pano.ID, *n.PanoID)
		assert.Nil(t, n.BookID)
	}

	// Owner acting on their own board writes nothing.
	require.NoError(t, service.CreatePanoVoteNotification(mehmet, pano.ID))
	_, total, err = writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestService_NewChapterFansOutToReaders(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	book, err := content.CreateBook(mehmet.ID, "Gece Treni", "")
	require.NoError(t, err)
	chapter, err := content.CreateChapter(book.ID, "Iki")
	require.NoError(t, err)

	// Three readers including the author; repeat opens stay one record.
	require.NoError(t, content.AppendReadingHistory(ayse.ID, book.ID))
	require.NoError(t, content.AppendReadingHistory(ayse.ID, book.ID))
	require.NoError(t, content.AppendReadingHistory(3, book.ID))
	require.NoError(t, content.AppendReadingHistory(mehmet.ID, book.ID))

	require.NoError(t, service.CreateNewChapterNotification(mehmet, book.ID, chapter.ID))

	for _, readerID := range []uint{ayse.ID, 3} {
		rows, total, err := writer.ListByRecipient(readerID, 10, 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), total, "reader %d", readerID)
		assert.Equal(t, entities.NotificationTypeNewChapter, rows[0].Type)
		require.NotNil(t, rows[0].ChapterID)
		assert.Equal(t, chapter.ID, *rows[0].ChapterID)
	}

	// The author never notifies themselves about their own chapter.
	_, total, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestService_NewChapterWithNoReadersIsNoop(t *testing.T) {
	service, content, writer, cleanup := setupTestService(t)
	defer cleanup()

	book, err := content.CreateBook(mehmet.ID, "Gece Treni", "")
	require.NoError(t, err)
	chapter, err := content.CreateChapter(book.ID, "Bir")
	require.NoError(t, err)

	require.NoError(t, service.CreateNewChapterNotification(mehmet, book.ID, chapter.ID))

	// No reader rows exist yet, so no notification may exist for anyone.
	rows, _, err := writer.ListByRecipient(ayse.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestService_MissingSubjectAbortsQuietly(t *testing.T) {
	service, _, writer, cleanup := setupTestService(t)
	defer cleanup()

	require.NoError(t, service.CreateChapterVoteNotification(ayse, 999))
	require.NoError(t, service.CreateCommentNotification(ayse, 999))
	require.NoError(t, service.CreateReplyNotification(ayse, mehmet.ID, 999))
	require.NoError(t, service.CreatePanoVoteNotification(ayse, 999))
	require.NoError(t, service.CreateNewChapterNotification(ayse, 999, 1))

	_, total, err := writer.ListByRecipient(mehmet.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}
