package model

import "time"

type NotificationType string

const (
	NotifyFollow           NotificationType = "follow"
	NotifyPhotoLike        NotificationType = "photo_like"
	NotifyCollectionLike   NotificationType = "collection_like"
	NotifyComment          NotificationType = "collection_comment"
	NotifyCommentReply     NotificationType = "comment_reply"
	NotifyCollaboratorJoin NotificationType = "collaborator_joined"
)

// Notification is write-once except for ReadAt.
type Notification struct {
	ID        uint64           `gorm:"primaryKey" json:"id"`
	UserID    uint64           `gorm:"not null;index:idx_notification_user_read,priority:1" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"size:500;not null" json:"message"`
	RelatedID *uint64          `json:"related_id"`
	ActionURL string           `gorm:"size:512" json:"action_url"`
	ReadAt    *time.Time       `gorm:"index:idx_notification_user_read,priority:2" json:"read_at"`
	CreatedAt time.Time        `json:"created_at"`
}

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&User{},
		&Session{},
		&Category{},
		&Tag{},
		&Photo{},
		&PhotoLike{},
		&PhotoSave{},
		&Follow{},
		&Collection{},
		&CollectionPhoto{},
		&CollectionCollaborator{},
		&CollectionLike{},
		&CollectionView{},
		&CollectionComment{},
		&CommentLike{},
		&Notification{},
		&ActivityOutbox{},
	}
}
