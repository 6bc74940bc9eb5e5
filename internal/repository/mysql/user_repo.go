package mysql

import (
	"context"
	"strings"

	"Lens_Community/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

// FindByLogin 用户名或邮箱登录
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User
	err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&usr).Error
	return &usr, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}

// UpdateProfile writes only the given columns.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(fields).Error
}

func (r *UserRepository) SetRole(ctx context.Context, userID uint64, role model.Role) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("role", role).Error
}

// List 后台用户列表，query 匹配用户名或邮箱
func (r *UserRepository) List(ctx context.Context, query string, offset, limit int) ([]model.User, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.User{})
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("username LIKE ? OR email LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.User
	err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

// IncrementCounter bumps one of the denormalized counters with a single statement.
func (r *UserRepository) IncrementCounter(ctx context.Context, userID uint64, column string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

// Delete 硬删除用户及其全部从属数据
func (r *UserRepository) Delete(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var collectionIDs []uint64
		if err := tx.Model(&model.Collection{}).Where("user_id = ?", userID).Pluck("id", &collectionIDs).Error; err != nil {
			return err
		}
		for _, id := range collectionIDs {
			if err := deleteCollectionTx(tx, id); err != nil {
				return err
			}
		}

		var photoIDs []uint64
		if err := tx.Model(&model.Photo{}).Where("user_id = ?", userID).Pluck("id", &photoIDs).Error; err != nil {
			return err
		}
		if err := deletePhotosTx(tx, photoIDs); err != nil {
			return err
		}

		var commentIDs []uint64
		if err := tx.Model(&model.CollectionComment{}).Where("user_id = ?", userID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if err := deleteCommentsTx(tx, commentIDs); err != nil {
			return err
		}

		steps := []struct {
			model any
			where string
			args  []any
		}{
			{&model.Session{}, "user_id = ?", []any{userID}},
			{&model.PhotoLike{}, "user_id = ?", []any{userID}},
			{&model.PhotoSave{}, "user_id = ?", []any{userID}},
			{&model.Follow{}, "follower_id = ? OR followee_id = ?", []any{userID, userID}},
			{&model.CollectionCollaborator{}, "user_id = ?", []any{userID}},
			{&model.CollectionLike{}, "user_id = ?", []any{userID}},
			{&model.CommentLike{}, "user_id = ?", []any{userID}},
			{&model.Notification{}, "user_id = ?", []any{userID}},
		}
		for _, s := range steps {
			if err := tx.Where(s.where, s.args...).Delete(s.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.User{}, userID).Error
	})
}

// Counters is the recomputed value of a user's denormalized counters.
type Counters struct {
	FollowerCount  int64
	FollowingCount int64
	UploadCount    int64
	ViewCount      int64
	DownloadCount  int64
}

// RealCounters 从明细表计算真实计数
func (r *UserRepository) RealCounters(ctx context.Context, userID uint64) (Counters, error) {
	var c Counters
	db := r.DB.WithContext(ctx)
	if err := db.Model(&model.Follow{}).Where("followee_id = ?", userID).Count(&c.FollowerCount).Error; err != nil {
		return c, err
	}
	if err := db.Model(&model.Follow{}).Where("follower_id = ?", userID).Count(&c.FollowingCount).Error; err != nil {
		return c, err
	}
	if err := db.Model(&model.Photo{}).Where("user_id = ? AND status = ?", userID, model.PhotoLive).Count(&c.UploadCount).Error; err != nil {
		return c, err
	}
	var sums struct {
		Views     int64
		Downloads int64
	}
	if err := db.Model(&model.Photo{}).
		Select("COALESCE(SUM(views), 0) AS views, COALESCE(SUM(downloads), 0) AS downloads").
		Where("user_id = ?", userID).
		Scan(&sums).Error; err != nil {
		return c, err
	}
	c.ViewCount = sums.Views
	c.DownloadCount = sums.Downloads
	return c, nil
}

func (r *UserRepository) SaveCounters(ctx context.Context, userID uint64, c Counters) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).UpdateColumns(map[string]any{
		"follower_count":  c.FollowerCount,
		"following_count": c.FollowingCount,
		"upload_count":    c.UploadCount,
		"view_count":      c.ViewCount,
		"download_count":  c.DownloadCount,
	}).Error
}

// IDsAfter 对账分批：按 id 升序取下一批用户
func (r *UserRepository) IDsAfter(ctx context.Context, lastID uint64, batchSize int) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Pluck("id", &ids).Error
	return ids, err
}

// Stats 全站计数
type Stats struct {
	Users           int64 `json:"users"`
	LivePhotos      int64 `json:"live_photos"`
	DraftPhotos     int64 `json:"draft_photos"`
	Collections     int64 `json:"collections"`
	PhotoLikes      int64 `json:"photo_likes"`
	CollectionLikes int64 `json:"collection_likes"`
}

func (r *UserRepository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	db := r.DB.WithContext(ctx)
	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&s.Users, &model.User{}, "", nil},
		{&s.LivePhotos, &model.Photo{}, "status = ?", []any{model.PhotoLive}},
		{&s.DraftPhotos, &model.Photo{}, "status = ?", []any{model.PhotoDraft}},
		{&s.Collections, &model.Collection{}, "", nil},
		{&s.PhotoLikes, &model.PhotoLike{}, "", nil},
		{&s.CollectionLikes, &model.CollectionLike{}, "", nil},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return &s, nil
}
