// Package notifications implements the fan-out engine. Each domain event
// (vote, comment, reply, new chapter) resolves its recipient set and writes
// one notification record per recipient. Delivery is best effort: callers
// enqueue these operations fire-and-forget and a failed write is logged,
// never surfaced to the user action that triggered it.
package notifications

import (
	"errors"
	"fmt"
	"log"

	"github.com/serialist/serialist/internal/database/books"
	"github.com/serialist/serialist/internal/entities"
)

// ContentStore resolves subjects and recipients for fan-out.
type ContentStore interface {
	GetBookByID(id uint) (*entities.Book, error)
	GetChapterByID(id uint) (*entities.Chapter, error)
	GetCommentByID(id uint) (*entities.Comment, error)
	GetPanoByID(id uint) (*entities.Pano, error)
	ReaderIDsForBook(bookID uint) ([]uint, error)
}

// Writer persists notification records.
type Writer interface {
	Create(n *entities.Notification) error
	CreateBatch(batch []entities.Notification) error
}

// Actor identifies the user whose action triggered an event. Suppression is
// always checked against ID, never Username, so duplicate display names
// cannot leak or swallow notifications.
type Actor struct {
	ID       uint
	Username string
}

// Service resolves recipients and writes notification records.
type Service struct {
	content ContentStore
	writer  Writer
}

// NewService creates the fan-out engine.
func NewService(content ContentStore, writer Writer) *Service {
	return &Service{content: content, writer: writer}
}

// CreateChapterVoteNotification notifies the book owner that one of their
// chapters received a vote.
func (s *Service) CreateChapterVoteNotification(actor Actor, chapterID uint) error {
	chapter, err := s.content.GetChapterByID(chapterID)
	if err != nil {
		return s.abortOnMissingSubject("chapter vote", err)
	}
	book, err := s.content.GetBookByID(chapter.BookID)
	if err != nil {
		return s.abortOnMissingSubject("chapter vote", err)
	}
	if actor.ID == book.UserID {
		return nil
	}

	return s.writer.Create(&entities.Notification{
		RecipientID:   book.UserID,
		ActorUsername: actor.Username,
		Type:          entities.NotificationTypeChapterVote,
		BookTitle:     book.Title,
		BookID:        &book.ID,
		ChapterID:     &chapter.ID,
	})
}

// CreateCommentNotification notifies the book owner about a comment placed
// on their book, one of its chapters, or a paragraph. The comment's own
// references determine which subject ids the record carries.
func (s *Service) CreateCommentNotification(actor Actor, commentID uint) error {
	comment, err := s.content.GetCommentByID(commentID)
	if err != nil {
		return s.abortOnMissingSubject("comment", err)
	}

	bookID, err := s.resolveBookID(comment)
	if err != nil {
		return s.abortOnMissingSubject("comment", err)
	}
	book, err := s.content.GetBookByID(bookID)
	if err != nil {
		return s.abortOnMissingSubject("comment", err)
	}
	if actor.ID == book.UserID {
		return nil
	}

	return s.writer.Create(&entities.Notification{
		RecipientID:   book.UserID,
		ActorUsername: actor.Username,
		Type:          entities.NotificationTypeComment,
		BookTitle:     book.Title,
		BookID:        &book.ID,
		ChapterID:     comment.ChapterID,
		ParagraphID:   comment.ParagraphID,
		CommentID:     &comment.ID,
	})
}

// CreateReplyNotification notifies the author of the parent comment. The
// target is the parent author resolved by the caller, not the actor's input.
func (s *Service) CreateReplyNotification(actor Actor, targetID, replyID uint) error {
	if actor.ID == targetID {
		return nil
	}

	reply, err := s.content.GetCommentByID(replyID)
	if err != nil {
		return s.abortOnMissingSubject("reply", err)
	}

	n := &entities.Notification{
		RecipientID:   targetID,
		ActorUsername: actor.Username,
		Type:          entities.NotificationTypeReply,
		ChapterID:     reply.ChapterID,
		ParagraphID:   reply.ParagraphID,
		CommentID:     &reply.ID,
		PanoID:        reply.PanoID,
	}
	if reply.BookID != nil {
		if book, err := s.content.GetBookByID(*reply.BookID); err == nil {
			n.BookTitle = book.Title
			n.BookID = &book.ID
		}
	}
	return s.writer.Create(n)
}

// CreatePanoVoteNotification notifies the board owner about a vote.
func (s *Service) CreatePanoVoteNotification(actor Actor, panoID uint) error {
	pano, err := s.content.GetPanoByID(panoID)
	if err != nil {
		return s.abortOnMissingSubject("pano vote", err)
	}
	if actor.ID == pano.UserID {
		return nil
	}

	return s.writer.Create(&entities.Notification{
		RecipientID:   pano.UserID,
		ActorUsername: actor.Username,
		Type:          entities.NotificationTypePanoVote,
		PanoID:        &pano.ID,
	})
}

// CreatePanoCommentNotification notifies the board owner about a comment.
func (s *Service) CreatePanoCommentNotification(actor Actor, panoID, commentID uint) error {
	pano, err := s.content.GetPanoByID(panoID)
	if err != nil {
		return s.abortOnMissingSubject("pano comment", err)
	}
	if actor.ID == pano.UserID {
		return nil
	}

	return s.writer.Create(&entities.Notification{
		RecipientID:   pano.UserID,
		ActorUsername: actor.Username,
		Type:          entities.NotificationTypePanoComment,
		PanoID:        &pano.ID,
		CommentID:     &commentID,
	})
}

// CreateNewChapterNotification fans out to every distinct reader with a
// reading-history record for the book, excluding the author, in one batch
// write. An empty reader set is a no-op.
func (s *Service) CreateNewChapterNotification(actor Actor, bookID, chapterID uint) error {
	book, err := s.content.GetBookByID(bookID)
	if err != nil {
		return s.abortOnMissingSubject("new chapter", err)
	}
	readers, err := s.content.ReaderIDsForBook(bookID)
	if err != nil {
		return fmt.Errorf("failed to resolve readers of book %d: %w", bookID, err)
	}

	batch := make([]entities.Notification, 0, len(readers))
	for _, readerID := range readers {
		if readerID == actor.ID {
			continue
		}
		batch = append(batch, entities.Notification{
			RecipientID:   readerID,
			ActorUsername: actor.Username,
			Type:          entities.NotificationTypeNewChapter,
			BookTitle:     book.Title,
			BookID:        &book.ID,
			ChapterID:     &chapterID,
		})
	}
	return s.writer.CreateBatch(batch)
}

// resolveBookID walks a comment's placement back to its book.
func (s *Service) resolveBookID(comment *entities.Comment) (uint, error) {
	if comment.BookID != nil {
		return *comment.BookID, nil
	}
	if comment.ChapterID != nil {
		chapter, err := s.content.GetChapterByID(*comment.ChapterID)
		if err != nil {
			return 0, err
		}
		return chapter.BookID, nil
	}
	return 0, books.ErrBookNotFound
}

// abortOnMissingSubject turns a not-found during recipient resolution into a
// quiet no-op. The subject was deleted between the action and the fan-out;
// there is nobody left to notify. Other errors propagate to the caller,
// which logs them without retrying.
func (s *Service) abortOnMissingSubject(event string, err error) error {
	if errors.Is(err, books.ErrBookNotFound) ||
		errors.Is(err, books.ErrChapterNotFound) ||
		errors.Is(err, books.ErrCommentNotFound) ||
		errors.Is(err, books.ErrPanoNotFound) {
		log.Printf("[NOTIFY] Skipping %s notification, subject gone: %v", event, err)
		return nil
	}
	return err
}
