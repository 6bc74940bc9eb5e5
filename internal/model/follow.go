package model

import "time"

type Follow struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	FollowerID uint64    `gorm:"not null;index:idx_follower_id;uniqueIndex:uk_follow_pair" json:"follower_id"`
	FolloweeID uint64    `gorm:"not null;index:idx_followee_id;uniqueIndex:uk_follow_pair" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName sets table name for Follow
func (Follow) TableName() string {
	return "follow"
}

// Outbox event types.
const (
	EventFollow         = "follow"
	EventPhotoLike      = "photo_like"
	EventCollectionLike = "collection_like"
	EventCollectionJoin = "collection_join"
)

// Outbox delivery states.
const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// ActivityOutbox 活动事件投递表, drained to kafka by the relayer
type ActivityOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"`
	ActorID   uint64 `gorm:"not null"`
	TargetID  uint64 `gorm:"not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;index"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ActivityOutbox) TableName() string { return "activity_outbox" }
