package mysql

import (
	"context"
	"strings"
	"time"

	"Lens_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PhotoRepository struct {
	DB *gorm.DB
}

// PhotoFilter 列表筛选条件；OwnerID 为 0 表示不限作者
type PhotoFilter struct {
	OwnerID      uint64
	CategoryID   uint64
	Tag          string
	Query        string
	IncludeDraft bool
}

// Photo sort orders.
const (
	SortNewest     = "newest"
	SortPopular    = "popular"
	SortMostViewed = "most_viewed"
)

func (r *PhotoRepository) Create(ctx context.Context, photo *model.Photo) error {
	return r.DB.WithContext(ctx).Create(photo).Error
}

func (r *PhotoRepository) FindByID(ctx context.Context, id uint64) (*model.Photo, error) {
	var photo model.Photo
	err := r.DB.WithContext(ctx).Preload("Tags").First(&photo, id).Error
	return &photo, err
}

// FindByIDs returns the photos that exist among ids, in no particular order.
func (r *PhotoRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Photo
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *PhotoRepository) List(ctx context.Context, f PhotoFilter, sort string, offset, limit int) ([]model.Photo, error) {
	q := r.DB.WithContext(ctx).Model(&model.Photo{}).Preload("Tags")
	if f.OwnerID != 0 {
		q = q.Where("photos.user_id = ?", f.OwnerID)
	}
	if !f.IncludeDraft {
		q = q.Where("photos.status = ?", model.PhotoLive)
	}
	if f.CategoryID != 0 {
		q = q.Where("photos.category_id = ?", f.CategoryID)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("photos.title LIKE ? OR photos.description LIKE ?", like, like)
	}
	if f.Tag != "" {
		q = q.Where("photos.id IN (?)", r.DB.Table("photo_tags").
			Select("photo_tags.photo_id").
			Joins("JOIN tags ON tags.id = photo_tags.tag_id").
			Where("tags.name = ?", strings.ToLower(f.Tag)))
	}

	switch sort {
	case SortPopular:
		q = q.Order("photos.likes DESC, photos.id DESC")
	case SortMostViewed:
		q = q.Order("photos.views DESC, photos.id DESC")
	default:
		q = q.Order("photos.created_at DESC, photos.id DESC")
	}

	var list []model.Photo
	err := q.Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// UpdateMeta writes title/description/category and replaces the tag set when tags is non-nil.
func (r *PhotoRepository) UpdateMeta(ctx context.Context, photo *model.Photo, fields map[string]any, tags []model.Tag) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := tx.Model(photo).Updates(fields).Error; err != nil {
				return err
			}
		}
		if tags != nil {
			return tx.Model(photo).Association("Tags").Replace(tags)
		}
		return nil
	})
}

// Publish flips draft to live and bumps the owner's upload counter.
// changed is false when the photo was already live.
func (r *PhotoRepository) Publish(ctx context.Context, photoID, ownerID uint64, at time.Time) (changed bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Photo{}).
			Where("id = ? AND user_id = ? AND status = ?", photoID, ownerID, model.PhotoDraft).
			Updates(map[string]any{"status": model.PhotoLive, "published_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return tx.Model(&model.User{}).Where("id = ?", ownerID).
			UpdateColumn("upload_count", gorm.Expr("upload_count + 1")).Error
	})
	return changed, err
}

// IncrementCounter runs a single `col = col + 1` statement; no surrounding transaction.
func (r *PhotoRepository) IncrementCounter(ctx context.Context, photoID uint64, column string) error {
	return r.DB.WithContext(ctx).Model(&model.Photo{}).
		Where("id = ?", photoID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

// Delete 删除照片及其关联行
func (r *PhotoRepository) Delete(ctx context.Context, photoID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deletePhotosTx(tx, []uint64{photoID})
	})
}

func deletePhotosTx(tx *gorm.DB, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Exec("DELETE FROM photo_tags WHERE photo_id IN ?", ids).Error; err != nil {
		return err
	}
	for _, m := range []any{&model.PhotoLike{}, &model.PhotoSave{}, &model.CollectionPhoto{}} {
		if err := tx.Where("photo_id IN ?", ids).Delete(m).Error; err != nil {
			return err
		}
	}
	if err := tx.Model(&model.Collection{}).Where("cover_photo_id IN ?", ids).
		Update("cover_photo_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&model.Photo{}).Error
}

// FindOrCreateTags 标签按名字小写去重，不存在则创建
func (r *PhotoRepository) FindOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		var tag model.Tag
		err := r.DB.WithContext(ctx).Where("name = ?", n).First(&tag).Error
		if err == nil {
			tags = append(tags, tag)
			continue
		}
		if !IsNotFound(err) {
			return nil, err
		}
		tag = model.Tag{Name: n}
		if err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
			return nil, err
		}
		// 并发创建时回查
		if tag.ID == 0 {
			if err := r.DB.WithContext(ctx).Where("name = ?", n).First(&tag).Error; err != nil {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

type CategoryRepository struct {
	DB *gorm.DB
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	var list []model.Category
	err := r.DB.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	err := r.DB.WithContext(ctx).First(&c, id).Error
	return &c, err
}
