package dto

// CreateBulletinRequest is submitted by any lab member.
type CreateBulletinRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content" validate:"required"`
	IsHighlight bool   `json:"is_highlight"`
}

// ModerateBulletinRequest carries a moderator's verdict.
type ModerateBulletinRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// BulletinQuery mirrors supported listing filters.
type BulletinQuery struct {
	Status   string `form:"status"`
	AuthorID string `form:"author_id"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
