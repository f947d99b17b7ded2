package models

import "time"

// BulletinStatus captures the moderation state of a bulletin.
type BulletinStatus string

const (
	BulletinStatusPending  BulletinStatus = "pending"
	BulletinStatusApproved BulletinStatus = "approved"
	BulletinStatusRejected BulletinStatus = "rejected"
)

// Terminal reports whether no further moderation transition exists.
func (s BulletinStatus) Terminal() bool {
	return s == BulletinStatusApproved || s == BulletinStatusRejected
}

// Bulletin is a lab announcement submitted by any user and moderated before publication.
type Bulletin struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Content     string         `db:"content" json:"content"`
	AuthorID    string         `db:"author_id" json:"author_id"`
	Status      BulletinStatus `db:"status" json:"status"`
	IsHighlight bool           `db:"is_highlight" json:"is_highlight"`
	ModeratedBy *string        `db:"moderated_by" json:"moderated_by,omitempty"`
	ModeratedAt *time.Time     `db:"moderated_at" json:"moderated_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// BulletinFilter constrains bulletin listings.
type BulletinFilter struct {
	Status        BulletinStatus
	HighlightOnly bool
	AuthorID      string
	Page          int
	PageSize      int
}
