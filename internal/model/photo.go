package model

import "time"

type PhotoStatus string

const (
	PhotoDraft PhotoStatus = "draft"
	PhotoLive  PhotoStatus = "live"
)

func ParsePhotoStatus(s string) (PhotoStatus, bool) {
	switch st := PhotoStatus(s); st {
	case PhotoDraft, PhotoLive:
		return st, true
	}
	return "", false
}

type Photo struct {
	ID            uint64      `gorm:"primaryKey" json:"id"`
	UserID        uint64      `gorm:"not null;index:idx_photo_user_status,priority:1" json:"user_id"`
	CategoryID    *uint64     `gorm:"index" json:"category_id"`
	Title         string      `gorm:"size:200" json:"title"`
	Description   string      `gorm:"type:text" json:"description"`
	FilePath      string      `gorm:"size:512;not null" json:"file_path"`
	ThumbnailPath string      `gorm:"size:512" json:"thumbnail_path"`
	Width         int         `gorm:"not null;default:0" json:"width"`
	Height        int         `gorm:"not null;default:0" json:"height"`
	Status        PhotoStatus `gorm:"size:8;not null;default:draft;index:idx_photo_user_status,priority:2" json:"status"`
	PublishedAt   *time.Time  `gorm:"index" json:"published_at"`
	Views         int64       `gorm:"not null;default:0" json:"views"`
	Likes         int64       `gorm:"not null;default:0" json:"likes"`
	Downloads     int64       `gorm:"not null;default:0" json:"downloads"`
	Tags          []Tag       `gorm:"many2many:photo_tags;" json:"tags"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// VisibleTo reports whether requester may read the photo; 0 is anonymous.
func (p *Photo) VisibleTo(requester uint64) bool {
	switch p.Status {
	case PhotoLive:
		return true
	case PhotoDraft:
		return requester != 0 && requester == p.UserID
	}
	return false
}

type Category struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Tag struct {
	ID   uint64 `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:64;not null" json:"name"`
}

type PhotoLike struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uk_photo_like_user_photo" json:"user_id"`
	PhotoID   uint64    `gorm:"not null;index;uniqueIndex:uk_photo_like_user_photo" json:"photo_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PhotoLike) TableName() string {
	return "photo_likes"
}

type PhotoSave struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uk_photo_save_user_photo" json:"user_id"`
	PhotoID   uint64    `gorm:"not null;index;uniqueIndex:uk_photo_save_user_photo" json:"photo_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PhotoSave) TableName() string {
	return "photo_saves"
}
