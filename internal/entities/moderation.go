package entities

import "time"

type NotificationType string

const (
	NotificationTypeChapterVote NotificationType = "chapter_vote"
	NotificationTypeComment     NotificationType = "comment"
	NotificationTypeReply       NotificationType = "reply"
	NotificationTypePanoVote    NotificationType = "pano_vote"
	NotificationTypePanoComment NotificationType = "pano_comment"
	NotificationTypeNewChapter  NotificationType = "new_chapter"
)

// Warning is a moderation warning issued to a single user. It is created by
// a moderator and flipped to seen exactly once when the user acknowledges it.
// Warnings are never deleted on acknowledgment, only marked.
type Warning struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Reason    string    `gorm:"type:text" json:"reason"`
	IsSeen    bool      `gorm:"default:false;index" json:"is_seen"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is one delivery record for one recipient. A single domain
// event fans out to one row per recipient; subject references that do not
// apply to the event type stay nil.
type Notification struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	RecipientID   uint             `gorm:"index" json:"recipient_id"`
	ActorUsername string           `gorm:"size:100" json:"actor_username"`
	Type          NotificationType `gorm:"size:20;index" json:"type"`
	BookTitle     string           `gorm:"size:512" json:"book_title,omitempty"`
	BookID        *uint            `gorm:"index" json:"book_id,omitempty"`
	ChapterID     *uint            `json:"chapter_id,omitempty"`
	ParagraphID   *uint            `json:"paragraph_id,omitempty"`
	CommentID     *uint            `json:"comment_id,omitempty"`
	PanoID        *uint            `json:"pano_id,omitempty"`
	IsRead        bool             `gorm:"default:false;index" json:"is_read"`
	Recipient     User             `gorm:"foreignKey:RecipientID" json:"-"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (Warning) TableName() string {
	return "warnings"
}

func (Notification) TableName() string {
	return "notifications"
}
