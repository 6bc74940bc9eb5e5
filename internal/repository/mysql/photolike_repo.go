package mysql

import (
	"context"

	"Lens_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PhotoLikeRepository struct {
	DB *gorm.DB
}

// ToggleLike 点赞/取消点赞切换，连同计数与 outbox 在同一事务内。liked 为切换后的状态
func (r *PhotoLikeRepository) ToggleLike(ctx context.Context, userID, photoID uint64) (liked bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND photo_id = ?", userID, photoID).Delete(&model.PhotoLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			// 计数-1，防止负数
			return tx.Model(&model.Photo{}).
				Where("id = ?", photoID).
				UpdateColumn("likes", clampedAdd("likes", -1)).Error
		}

		// 唯一(user_id, photo_id) 幂等插入
		if err := tx.Create(&model.PhotoLike{UserID: userID, PhotoID: photoID}).Error; err != nil {
			return err
		}
		liked = true
		if err := tx.Model(&model.Photo{}).
			Where("id = ?", photoID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventPhotoLike, userID, photoID)
	})
	return liked, err
}

// ToggleSave 收藏照片切换，无计数
func (r *PhotoLikeRepository) ToggleSave(ctx context.Context, userID, photoID uint64) (saved bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND photo_id = ?", userID, photoID).Delete(&model.PhotoSave{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			saved = false
			return nil
		}
		saved = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.PhotoSave{UserID: userID, PhotoID: photoID}).Error
	})
	return saved, err
}

func (r *PhotoLikeRepository) IsLiked(ctx context.Context, userID, photoID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.PhotoLike{}).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Count(&count).Error
	return count > 0, err
}

func (r *PhotoLikeRepository) IsSaved(ctx context.Context, userID, photoID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.PhotoSave{}).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Count(&count).Error
	return count > 0, err
}

func (r *PhotoLikeRepository) GetLikeCount(ctx context.Context, photoID uint64) (int64, error) {
	var p model.Photo
	err := r.DB.WithContext(ctx).Select("id", "likes").First(&p, photoID).Error
	if err != nil {
		return 0, err
	}
	return p.Likes, nil
}

// SavedPhotos 用户收藏的照片，最近收藏在前
func (r *PhotoLikeRepository) SavedPhotos(ctx context.Context, userID uint64, offset, limit int) ([]model.Photo, error) {
	var list []model.Photo
	err := r.DB.WithContext(ctx).
		Joins("JOIN photo_saves ON photo_saves.photo_id = photos.id").
		Where("photo_saves.user_id = ? AND photos.status = ?", userID, model.PhotoLive).
		Order("photo_saves.id DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, err
}
