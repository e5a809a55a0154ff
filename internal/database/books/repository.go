// Package books provides database operations for books, chapters, comments,
// panos, and reading history. Recipient resolution for notifications reads
// ownership and history through this package.
package books

import (
	"errors"

	"gorm.io/gorm"

	"github.com/serialist/serialist/internal/entities"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrPanoNotFound    = errors.New("pano not found")
)

// Repository handles content database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new content repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBook creates a book owned by the given user.
func (r *Repository) CreateBook(userID uint, title, synopsis string) (*entities.Book, error) {
	book := &entities.Book{
		UserID:   userID,
		Title:    title,
		Synopsis: synopsis,
	}
	if err := r.db.Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// GetBookByID retrieves a book by ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// CreateChapter appends a chapter to a book. The chapter number is the next
// sequential number for that book.
func (r *Repository) CreateChapter(bookID uint, title string) (*entities.Chapter, error) {
	var count int64
	if err := r.db.Model(&entities.Chapter{}).Where("book_id = ?", bookID).Count(&count).Error; err != nil {
		return nil, err
	}

	chapter := &entities.Chapter{
		BookID: bookID,
		Number: int(count) + 1,
		Title:  title,
	}
	if err := r.db.Create(chapter).Error; err != nil {
		return nil, err
	}
	return chapter, nil
}

// GetChapterByID retrieves a chapter by ID.
func (r *Repository) GetChapterByID(id uint) (*entities.Chapter, error) {
	var chapter entities.Chapter
	err := r.db.First(&chapter, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChapterNotFound
		}
		return nil, err
	}
	return &chapter, nil
}

// CreateComment stores a comment. Only the references relevant to the
// comment's placement should be set on the passed entity.
func (r *Repository) CreateComment(comment *entities.Comment) error {
	return r.db.Create(comment).Error
}

// GetCommentByID retrieves a comment by ID.
func (r *Repository) GetCommentByID(id uint) (*entities.Comment, error) {
	var comment entities.Comment
	err := r.db.First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// CreatePano creates a discussion board owned by the given user.
func (r *Repository) CreatePano(userID uint, title string) (*entities.Pano, error) {
	pano := &entities.Pano{
		UserID: userID,
		Title:  title,
	}
	if err := r.db.Create(pano).Error; err != nil {
		return nil, err
	}
	return pano, nil
}

// GetPanoByID retrieves a pano by ID.
func (r *Repository) GetPanoByID(id uint) (*entities.Pano, error) {
	var pano entities.Pano
	err := r.db.First(&pano, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPanoNotFound
		}
		return nil, err
	}
	return &pano, nil
}

// AppendReadingHistory records that a user opened a book. Idempotent: the
// (user, book) pair is stored at most once.
func (r *Repository) AppendReadingHistory(userID, bookID uint) error {
	entry := entities.ReadingHistory{UserID: userID, BookID: bookID}
	return r.db.Where(&entry).FirstOrCreate(&entry).Error
}

// ReaderIDsForBook returns the distinct user ids with a reading-history
// record for the book. This is the recipient set for new-chapter fan-out.
func (r *Repository) ReaderIDsForBook(bookID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.ReadingHistory{}).
		Where("book_id = ?", bookID).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
