package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/serialist/serialist/internal/auth"
	"github.com/serialist/serialist/internal/database/books"
	"github.com/serialist/serialist/internal/entities"
	"github.com/serialist/serialist/internal/tasks"
)

// TaskEnqueuer queues background tasks. Nil disables fan-out entirely.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// ContentController serves books, chapters, comments, and panos. Every
// mutating action enqueues its notification fan-out fire-and-forget: the
// primary write has already succeeded by the time the task is queued, and a
// queue failure is only logged.
type ContentController struct {
	content *books.Repository
	queue   TaskEnqueuer
}

// NewContentController creates the content controller. queue may be nil.
func NewContentController(content *books.Repository, queue TaskEnqueuer) *ContentController {
	return &ContentController{content: content, queue: queue}
}

// enqueueNotify queues a fan-out task. Never fails the caller's request.
func (cc *ContentController) enqueueNotify(task tasks.NotifyTask) {
	if cc.queue == nil {
		return
	}
	if _, err := cc.queue.Add(task).Save(); err != nil {
		log.Printf("[NOTIFY] Failed to enqueue %s notification: %v", task.Event, err)
	}
}

func actorFrom(c *gin.Context) (uint, string) {
	return GetUserID(c), auth.GetUsername(c)
}

type bookForm struct {
	Title    string `form:"title" json:"title" binding:"required"`
	Synopsis string `form:"synopsis" json:"synopsis"`
}

// CreateBook creates a book owned by the caller.
// POST /api/books
func (cc *ContentController) CreateBook(c *gin.Context) {
	var form bookForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "title is required")
		return
	}

	book, err := cc.content.CreateBook(GetUserID(c), form.Title, form.Synopsis)
	if err != nil {
		respondInternalError(c, err, "create book")
		return
	}
	respondCreated(c, book)
}

// BookPage serves a book's page. Opening it is what makes the caller a
// "reader" of the book: the visit is recorded in reading history, which is
// the recipient set for new-chapter notifications.
// GET /books/:id
func (cc *ContentController) BookPage(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.content.GetBookByID(bookID)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	if userID := GetUserID(c); userID != 0 {
		if err := cc.content.AppendReadingHistory(userID, book.ID); err != nil {
			// The page still renders; the reader just misses future
			// new-chapter notifications until the next visit succeeds.
			log.Printf("Failed to record reading history for user %d, book %d: %v", userID, book.ID, err)
		}
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, book)
		return
	}
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, book.Title, book.Title, book.Synopsis)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

type chapterForm struct {
	Title string `form:"title" json:"title" binding:"required"`
}

// PublishChapter appends a chapter to the caller's own book and fans out a
// new-chapter notification to every reader of the book.
// POST /api/books/:id/chapters
func (cc *ContentController) PublishChapter(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.content.GetBookByID(bookID)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	actorID, actorName := actorFrom(c)
	if book.UserID != actorID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the author can publish chapters"})
		return
	}

	var form chapterForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "title is required")
		return
	}

	chapter, err := cc.content.CreateChapter(book.ID, form.Title)
	if err != nil {
		respondInternalError(c, err, "create chapter")
		return
	}

	cc.enqueueNotify(tasks.NotifyTask{
		Event:         entities.NotificationTypeNewChapter,
		ActorID:       actorID,
		ActorUsername: actorName,
		BookID:        book.ID,
		ChapterID:     chapter.ID,
	})
	respondCreated(c, chapter)
}

// VoteChapter records a vote on a chapter and notifies the book owner.
// POST /api/chapters/:id/vote
func (cc *ContentController) VoteChapter(c *gin.Context) {
	chapterID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := cc.content.GetChapterByID(chapterID); err != nil {
		if errors.Is(err, books.ErrChapterNotFound) {
			respondNotFound(c, "chapter")
			return
		}
		respondInternalError(c, err, "get chapter")
		return
	}

	actorID, actorName := actorFrom(c)
	cc.enqueueNotify(tasks.NotifyTask{
		Event:         entities.NotificationTypeChapterVote,
		ActorID:       actorID,
		ActorUsername: actorName,
		ChapterID:     chapterID,
	})
	respondSuccess(c, "vote recorded")
}

type commentForm struct {
	Text        string `form:"text" json:"text" binding:"required"`
	ChapterID   *uint  `form:"chapter_id" json:"chapter_id"`
	ParagraphID *uint  `form:"paragraph_id" json:"paragraph_id"`
}

// CreateComment places a comment on a book (optionally scoped to a chapter
// or paragraph) and notifies the book owner.
// POST /api/books/:id/comments
func (cc *ContentController) CreateComment(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := cc.content.GetBookByID(bookID); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	actorID, actorName := actorFrom(c)
	comment := &entities.Comment{
		UserID:      actorID,
		BookID:      &bookID,
		ChapterID:   form.ChapterID,
		ParagraphID: form.ParagraphID,
		Text:        form.Text,
	}
	if err := cc.content.CreateComment(comment); err != nil {
		respondInternalError(c, err, "create comment")
		return
	}

	cc.enqueueNotify(tasks.NotifyTask{
		Event:         entities.NotificationTypeComment,
		ActorID:       actorID,
		ActorUsername: actorName,
		CommentID:     comment.ID,
	})
	respondCreated(c, comment)
}

type replyForm struct {
	Text string `form:"text" json:"text" binding:"required"`
}

// CreateReply replies to an existing comment and notifies its author. The
// notification target is the parent comment's author as stored, never a
// client-supplied identity.
// POST /api/comments/:id/replies
func (cc *ContentController) CreateReply(c *gin.Context) {
	parentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	parent, err := cc.content.GetCommentByID(parentID)
	if err != nil {
		if errors.Is(err, books.ErrCommentNotFound) {
			respondNotFound(c, "comment")
			return
		}
		respondInternalError(c, err, "get comment")
		return
	}

	var form replyForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	actorID, actorName := actorFrom(c)
	reply := &entities.Comment{
		UserID:      actorID,
		BookID:      parent.BookID,
		ChapterID:   parent.ChapterID,
		ParagraphID: parent.ParagraphID,
		PanoID:      parent.PanoID,
		ParentID:    &parent.ID,
		Text:        form.Text,
	}
	if err := cc.content.CreateComment(reply); err != nil {
		respondInternalError(c, err, "create reply")
		return
	}

	cc.enqueueNotify(tasks.NotifyTask{
		Event:         entities.NotificationTypeReply,
		ActorID:       actorID,
		ActorUsername: actorName,
		TargetID:      parent.UserID,
		CommentID:     reply.ID,
	})
	respondCreated(c, reply)
}

type panoForm struct {
	Title string `form:"title" json:"title" binding:"required"`
}

// CreatePano creates a discussion board owned by the caller.
// POST /api/panos
func (cc *ContentController) CreatePano(c *gin.Context) {
	var form panoForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "title is required")
		return
	}

	pano, err := cc.content.CreatePano(GetUserID(c), form.Title)
	if err != nil {
		respondInternalError(c, err, "create pano")
		return
	}
	respondCreated(c, pano)
}

// VotePano records a vote on a board and notifies its owner.
// POST /api/panos/:id/vote
func (cc *ContentController) VotePano(c *gin.Context) {
	panoID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := cc.content.GetPanoByID(panoID); err != nil {
		if errors.Is(err, books.ErrPanoNotFound) {
			respondNotFound(c, "pano")
			return
		}
		respondInternalError(c, err, "get pano")
		return
	}

	actorID, actorName := actorFrom(c)
	cc.enqueueNotify(tasks.NotifyTask{
		Event:         entities.NotificationTypePanoVote,
		ActorID:       actorID,
		ActorUsername: actorName,
		PanoID:        panoID,
	})
	respondSuccess(c, "vote recorded")
}

// CommentPano places a comment on a board and notifies its owner.
// POST /api/panos/:id/comments
func (cc *ContentController) CommentPano(c *gin.Context) {
	panoID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := cc.content.GetPanoByID(panoID); err != nil {
		if errors.Is(err, books.ErrPanoNotFound) {
			respondNotFound(c, "pano")
			return
		}
		respondInternalError(c, err, "get pano")
		return
	}

	var form replyForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	actorID, actorName := actorFrom(c)
	comment := &entities.Comment{
		UserID: actorID,
		PanoID: &panoID,
		Text:   form.Text,
	}
	if err := cc.content.CreateComment(comment); err != nil {
		respondInternalError(c, err, "create pano comment")
		return
	}

	cc.enqueueNotify(tasks.NotifyTask{
		Event:         entities.NotificationTypePanoComment,
		ActorID:       actorID,
		ActorUsername: actorName,
		PanoID:        panoID,
		CommentID:     comment.ID,
	})
	respondCreated(c, comment)
}
