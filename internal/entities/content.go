package entities

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string         `gorm:"size:100" json:"-"`
	IsBanned     bool           `gorm:"default:false;index" json:"is_banned"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"` // Owner (author)
	Title     string         `gorm:"index;size:512" json:"title"`
	Synopsis  string         `gorm:"type:text" json:"synopsis,omitempty"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Chapters  []Chapter      `gorm:"foreignKey:BookID" json:"chapters,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type Chapter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"index" json:"book_id"`
	Number    int       `json:"number"`
	Title     string    `gorm:"size:512" json:"title"`
	Book      Book      `gorm:"foreignKey:BookID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Paragraph struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ChapterID uint    `gorm:"index" json:"chapter_id"`
	Position  int     `json:"position"`
	Text      string  `gorm:"type:text" json:"text"`
	Chapter   Chapter `gorm:"foreignKey:ChapterID" json:"-"`
}

// Comment can be attached to a book, a chapter, a paragraph, or a pano.
// Only the references relevant to its placement are set.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"` // Author
	BookID      *uint     `gorm:"index" json:"book_id,omitempty"`
	ChapterID   *uint     `gorm:"index" json:"chapter_id,omitempty"`
	ParagraphID *uint     `gorm:"index" json:"paragraph_id,omitempty"`
	PanoID      *uint     `gorm:"index" json:"pano_id,omitempty"`
	ParentID    *uint     `gorm:"index" json:"parent_id,omitempty"` // Set on replies
	Text        string    `gorm:"type:text" json:"text"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Pano is a reader discussion board owned by a single user.
type Pano struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"` // Owner
	Title     string    `gorm:"size:512" json:"title"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadingHistory records that a user has opened a book at least once.
// It is the recipient set for new-chapter fan-out.
type ReadingHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_history_user_book,unique" json:"user_id"`
	BookID    uint      `gorm:"index:idx_history_user_book,unique;index" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (Chapter) TableName() string {
	return "chapters"
}

func (Paragraph) TableName() string {
	return "paragraphs"
}

func (Comment) TableName() string {
	return "comments"
}

func (Pano) TableName() string {
	return "panos"
}

func (ReadingHistory) TableName() string {
	return "reading_history"
}
