package mysql

import (
	"context"

	"Lens_Community/internal/model"

	"gorm.io/gorm"
)

type EngagementRepository struct {
	DB *gorm.DB
}

// CommentView is a comment with its author and read-time aggregates.
type CommentView struct {
	model.CollectionComment
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	ReplyCount  int64  `json:"reply_count"`
	LikeCount   int64  `json:"like_count"`
	Liked       bool   `json:"liked" gorm:"-"`
}

// ToggleCollectionLike 收藏集点赞切换；新增时写 outbox
func (r *EngagementRepository) ToggleCollectionLike(ctx context.Context, userID, collectionID uint64) (liked bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND collection_id = ?", userID, collectionID).Delete(&model.CollectionLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		if err := tx.Create(&model.CollectionLike{UserID: userID, CollectionID: collectionID}).Error; err != nil {
			return err
		}
		liked = true
		return insertOutbox(tx, model.EventCollectionLike, userID, collectionID)
	})
	return liked, err
}

func (r *EngagementRepository) IsCollectionLiked(ctx context.Context, userID, collectionID uint64) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.CollectionLike{}).
		Where("user_id = ? AND collection_id = ?", userID, collectionID).
		Count(&n).Error
	return n > 0, err
}

// RecordView 每次访问一行，不去重
func (r *EngagementRepository) RecordView(ctx context.Context, collectionID uint64, userID *uint64) error {
	return r.DB.WithContext(ctx).Create(&model.CollectionView{CollectionID: collectionID, UserID: userID}).Error
}

func (r *EngagementRepository) CreateComment(ctx context.Context, c *model.CollectionComment) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *EngagementRepository) FindComment(ctx context.Context, collectionID, commentID uint64) (*model.CollectionComment, error) {
	var c model.CollectionComment
	err := r.DB.WithContext(ctx).
		Where("id = ? AND collection_id = ?", commentID, collectionID).
		First(&c).Error
	return &c, err
}

// ListComments returns top-level comments newest first, or the replies of
// parentID oldest first when parentID is non-zero.
func (r *EngagementRepository) ListComments(ctx context.Context, collectionID, parentID uint64, offset, limit int) ([]CommentView, error) {
	q := r.DB.WithContext(ctx).Model(&model.CollectionComment{}).
		Select(`collection_comments.*, users.username, users.display_name, users.avatar_url,
	(SELECT COUNT(*) FROM collection_comments rc WHERE rc.parent_id = collection_comments.id) AS reply_count,
	(SELECT COUNT(*) FROM collection_comment_likes l WHERE l.comment_id = collection_comments.id) AS like_count`).
		Joins("LEFT JOIN users ON users.id = collection_comments.user_id").
		Where("collection_comments.collection_id = ?", collectionID)
	if parentID == 0 {
		q = q.Where("collection_comments.parent_id IS NULL").Order("collection_comments.id DESC")
	} else {
		q = q.Where("collection_comments.parent_id = ?", parentID).Order("collection_comments.id ASC")
	}
	var list []CommentView
	err := q.Offset(offset).Limit(limit).Scan(&list).Error
	return list, err
}

// LikedComments 返回 ids 中 userID 已点赞的评论集合
func (r *EngagementRepository) LikedComments(ctx context.Context, userID uint64, ids []uint64) (map[uint64]bool, error) {
	set := make(map[uint64]bool)
	if userID == 0 || len(ids) == 0 {
		return set, nil
	}
	var liked []uint64
	if err := r.DB.WithContext(ctx).Model(&model.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, ids).
		Pluck("comment_id", &liked).Error; err != nil {
		return nil, err
	}
	for _, id := range liked {
		set[id] = true
	}
	return set, nil
}

// DeleteComment removes the comment, its replies and their likes.
func (r *EngagementRepository) DeleteComment(ctx context.Context, commentID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteCommentsTx(tx, []uint64{commentID})
	})
}

func deleteCommentsTx(tx *gorm.DB, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	var replyIDs []uint64
	if err := tx.Model(&model.CollectionComment{}).Where("parent_id IN ?", ids).Pluck("id", &replyIDs).Error; err != nil {
		return err
	}
	all := append(append([]uint64{}, ids...), replyIDs...)
	if err := tx.Where("comment_id IN ?", all).Delete(&model.CommentLike{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", all).Delete(&model.CollectionComment{}).Error
}

func (r *EngagementRepository) ToggleCommentLike(ctx context.Context, userID, commentID uint64) (liked bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&model.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		liked = true
		return tx.Create(&model.CommentLike{UserID: userID, CommentID: commentID}).Error
	})
	return liked, err
}
