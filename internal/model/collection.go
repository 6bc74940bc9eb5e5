package model

import "time"

type Collection struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	PublicID        string    `gorm:"uniqueIndex;size:36;not null" json:"public_id"`
	UserID          uint64    `gorm:"not null;index" json:"user_id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	IsPrivate       bool      `gorm:"not null;default:false" json:"is_private"`
	IsCollaborative bool      `gorm:"not null;default:false" json:"is_collaborative"`
	CoverPhotoID    *uint64   `json:"cover_photo_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CollectionPhoto is a membership row; insertion order is id order.
type CollectionPhoto struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	CollectionID uint64    `gorm:"not null;uniqueIndex:uk_collection_photo" json:"collection_id"`
	PhotoID      uint64    `gorm:"not null;index;uniqueIndex:uk_collection_photo" json:"photo_id"`
	AddedBy      uint64    `gorm:"not null" json:"added_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type CollaboratorStatus string

const (
	CollaboratorPending  CollaboratorStatus = "pending"
	CollaboratorAccepted CollaboratorStatus = "accepted"
)

const CollaboratorRoleEditor = "editor"

// CollectionCollaborator is an invitation that becomes a membership once accepted.
// UserID is nil when the invited email had no account at invite time.
type CollectionCollaborator struct {
	ID           uint64             `gorm:"primaryKey" json:"id"`
	CollectionID uint64             `gorm:"not null;index:idx_collab_collection_status,priority:1" json:"collection_id"`
	UserID       *uint64            `gorm:"index" json:"user_id"`
	Email        string             `gorm:"size:128;not null;index" json:"email"`
	Role         string             `gorm:"size:16;not null;default:editor" json:"role"`
	Status       CollaboratorStatus `gorm:"size:16;not null;default:pending;index:idx_collab_collection_status,priority:2" json:"status"`
	OTPCode      string             `gorm:"size:6;not null" json:"-"`
	OTPExpiresAt time.Time          `gorm:"not null" json:"-"`
	InvitedBy    uint64             `gorm:"not null" json:"invited_by"`
	InvitedAt    time.Time          `gorm:"not null" json:"invited_at"`
	RespondedAt  *time.Time         `json:"responded_at"`
}

func (c *CollectionCollaborator) IsAccepted() bool {
	switch c.Status {
	case CollaboratorAccepted:
		return true
	case CollaboratorPending:
		return false
	}
	return false
}

type CollectionLike struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	UserID       uint64    `gorm:"not null;uniqueIndex:uk_collection_like" json:"user_id"`
	CollectionID uint64    `gorm:"not null;index;uniqueIndex:uk_collection_like" json:"collection_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CollectionView rows are not unique per viewer.
type CollectionView struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	CollectionID uint64    `gorm:"not null;index" json:"collection_id"`
	UserID       *uint64   `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CollectionComment replies reference a top-level comment of the same collection.
type CollectionComment struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	CollectionID uint64    `gorm:"not null;index" json:"collection_id"`
	UserID       uint64    `gorm:"not null;index" json:"user_id"`
	ParentID     *uint64   `gorm:"index" json:"parent_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CommentLike struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uk_comment_like" json:"user_id"`
	CommentID uint64    `gorm:"not null;index;uniqueIndex:uk_comment_like" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string {
	return "collection_comment_likes"
}
