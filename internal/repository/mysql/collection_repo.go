package mysql

import (
	"context"

	"Lens_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CollectionRepository struct {
	DB *gorm.DB
}

// CollectionSummary carries the read-time aggregates of one collection.
// PhotoCount counts live photos only; drafts are private to their owners.
type CollectionSummary struct {
	model.Collection
	PhotoCount   int64 `json:"photo_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	ViewCount    int64 `json:"view_count"`
}

const summarySelect = `collections.*,
	(SELECT COUNT(*) FROM collection_photos cp JOIN photos p ON p.id = cp.photo_id
		WHERE cp.collection_id = collections.id AND p.status = 'live') AS photo_count,
	(SELECT COUNT(*) FROM collection_likes cl WHERE cl.collection_id = collections.id) AS like_count,
	(SELECT COUNT(*) FROM collection_comments cc WHERE cc.collection_id = collections.id) AS comment_count,
	(SELECT COUNT(*) FROM collection_views cv WHERE cv.collection_id = collections.id) AS view_count`

func (r *CollectionRepository) Create(ctx context.Context, c *model.Collection) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CollectionRepository) FindByID(ctx context.Context, id uint64) (*model.Collection, error) {
	var c model.Collection
	err := r.DB.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *CollectionRepository) FindByPublicID(ctx context.Context, publicID string) (*model.Collection, error) {
	var c model.Collection
	err := r.DB.WithContext(ctx).Where("public_id = ?", publicID).First(&c).Error
	return &c, err
}

// Summary 单个收藏集的聚合计数
func (r *CollectionRepository) Summary(ctx context.Context, id uint64) (*CollectionSummary, error) {
	var s CollectionSummary
	res := r.DB.WithContext(ctx).Model(&model.Collection{}).
		Select(summarySelect).
		Where("collections.id = ?", id).
		Limit(1).
		Scan(&s)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

// ListPublic 公开收藏集，按创建时间倒序
func (r *CollectionRepository) ListPublic(ctx context.Context, offset, limit int) ([]CollectionSummary, error) {
	var list []CollectionSummary
	err := r.DB.WithContext(ctx).Model(&model.Collection{}).
		Select(summarySelect).
		Where("collections.is_private = ?", false).
		Order("collections.id DESC").
		Offset(offset).Limit(limit).
		Scan(&list).Error
	return list, err
}

// ListByOwner lists a user's collections; private ones only when includePrivate.
func (r *CollectionRepository) ListByOwner(ctx context.Context, ownerID uint64, includePrivate bool, offset, limit int) ([]CollectionSummary, error) {
	q := r.DB.WithContext(ctx).Model(&model.Collection{}).
		Select(summarySelect).
		Where("collections.user_id = ?", ownerID)
	if !includePrivate {
		q = q.Where("collections.is_private = ?", false)
	}
	var list []CollectionSummary
	err := q.Order("collections.id DESC").Offset(offset).Limit(limit).Scan(&list).Error
	return list, err
}

// ListMine 我创建的以及已接受协作的收藏集
func (r *CollectionRepository) ListMine(ctx context.Context, userID uint64, offset, limit int) ([]CollectionSummary, error) {
	accepted := r.DB.Model(&model.CollectionCollaborator{}).
		Select("collection_id").
		Where("user_id = ? AND status = ?", userID, model.CollaboratorAccepted)
	var list []CollectionSummary
	err := r.DB.WithContext(ctx).Model(&model.Collection{}).
		Select(summarySelect).
		Where("collections.user_id = ? OR collections.id IN (?)", userID, accepted).
		Order("collections.id DESC").
		Offset(offset).Limit(limit).
		Scan(&list).Error
	return list, err
}

// Photos returns member photos in insertion order.
func (r *CollectionRepository) Photos(ctx context.Context, collectionID uint64) ([]model.Photo, error) {
	var list []model.Photo
	err := r.DB.WithContext(ctx).
		Joins("JOIN collection_photos ON collection_photos.photo_id = photos.id").
		Where("collection_photos.collection_id = ?", collectionID).
		Order("collection_photos.id ASC").
		Find(&list).Error
	return list, err
}

func (r *CollectionRepository) Membership(ctx context.Context, collectionID, photoID uint64) (*model.CollectionPhoto, error) {
	var cp model.CollectionPhoto
	err := r.DB.WithContext(ctx).
		Where("collection_id = ? AND photo_id = ?", collectionID, photoID).
		First(&cp).Error
	return &cp, err
}

// AddPhotos 已存在的成员关系直接忽略
func (r *CollectionRepository) AddPhotos(ctx context.Context, collectionID, addedBy uint64, photoIDs []uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return addPhotosTx(tx, collectionID, addedBy, photoIDs)
	})
}

// UpdateWithPhotos 元数据与照片集合在同一事务内写入；photoIDs 为 nil 时不动照片
func (r *CollectionRepository) UpdateWithPhotos(ctx context.Context, id uint64, fields map[string]any, addedBy uint64, photoIDs *[]uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := tx.Model(&model.Collection{}).Where("id = ?", id).Updates(fields).Error; err != nil {
				return err
			}
		}
		if photoIDs == nil {
			return nil
		}
		return replacePhotosTx(tx, id, addedBy, *photoIDs)
	})
}

// replacePhotosTx 保留的照片沿用原 added_by，新加入的记为 addedBy
func replacePhotosTx(tx *gorm.DB, collectionID, addedBy uint64, photoIDs []uint64) error {
	var existing []model.CollectionPhoto
	if err := tx.Where("collection_id = ?", collectionID).Find(&existing).Error; err != nil {
		return err
	}
	adders := make(map[uint64]uint64, len(existing))
	for _, cp := range existing {
		adders[cp.PhotoID] = cp.AddedBy
	}
	if err := tx.Where("collection_id = ?", collectionID).Delete(&model.CollectionPhoto{}).Error; err != nil {
		return err
	}
	for _, pid := range photoIDs {
		by, ok := adders[pid]
		if !ok {
			by = addedBy
		}
		if err := addPhotosTx(tx, collectionID, by, []uint64{pid}); err != nil {
			return err
		}
	}
	return nil
}

func addPhotosTx(tx *gorm.DB, collectionID, addedBy uint64, photoIDs []uint64) error {
	for _, pid := range photoIDs {
		row := model.CollectionPhoto{CollectionID: collectionID, PhotoID: pid, AddedBy: addedBy}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *CollectionRepository) RemovePhoto(ctx context.Context, collectionID, photoID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ? AND photo_id = ?", collectionID, photoID).
			Delete(&model.CollectionPhoto{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Collection{}).
			Where("id = ? AND cover_photo_id = ?", collectionID, photoID).
			Update("cover_photo_id", nil).Error
	})
}

// Delete 级联删除收藏集
func (r *CollectionRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteCollectionTx(tx, id)
	})
}

func deleteCollectionTx(tx *gorm.DB, collectionID uint64) error {
	var commentIDs []uint64
	if err := tx.Model(&model.CollectionComment{}).
		Where("collection_id = ?", collectionID).
		Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	if len(commentIDs) > 0 {
		if err := tx.Where("comment_id IN ?", commentIDs).Delete(&model.CommentLike{}).Error; err != nil {
			return err
		}
	}
	for _, m := range []any{
		&model.CollectionComment{},
		&model.CollectionLike{},
		&model.CollectionView{},
		&model.CollectionCollaborator{},
		&model.CollectionPhoto{},
	} {
		if err := tx.Where("collection_id = ?", collectionID).Delete(m).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&model.Collection{}, collectionID).Error
}
