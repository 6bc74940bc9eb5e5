package mysql

import (
	"context"
	"strings"
	"time"

	"Lens_Community/internal/model"

	"gorm.io/gorm"
)

type CollaboratorRepository struct {
	DB *gorm.DB
}

// CollaboratorView is a collaborator row joined with the bound account, if any.
type CollaboratorView struct {
	model.CollectionCollaborator
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func (r *CollaboratorRepository) Create(ctx context.Context, c *model.CollectionCollaborator) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CollaboratorRepository) FindByID(ctx context.Context, collectionID, id uint64) (*model.CollectionCollaborator, error) {
	var c model.CollectionCollaborator
	err := r.DB.WithContext(ctx).
		Where("id = ? AND collection_id = ?", id, collectionID).
		First(&c).Error
	return &c, err
}

// FindAccepted 查询用户在收藏集中的已接受协作关系
func (r *CollaboratorRepository) FindAccepted(ctx context.Context, collectionID, userID uint64) (*model.CollectionCollaborator, error) {
	var c model.CollectionCollaborator
	err := r.DB.WithContext(ctx).
		Where("collection_id = ? AND user_id = ? AND status = ?", collectionID, userID, model.CollaboratorAccepted).
		First(&c).Error
	return &c, err
}

// FindPendingByCode returns the newest pending row carrying code.
func (r *CollaboratorRepository) FindPendingByCode(ctx context.Context, collectionID uint64, code string) (*model.CollectionCollaborator, error) {
	var c model.CollectionCollaborator
	err := r.DB.WithContext(ctx).
		Where("collection_id = ? AND otp_code = ? AND status = ?", collectionID, code, model.CollaboratorPending).
		Order("id DESC").
		First(&c).Error
	return &c, err
}

// ExistingEmails returns the lowercased emails already pending or accepted on the collection.
func (r *CollaboratorRepository) ExistingEmails(ctx context.Context, collectionID uint64) (map[string]bool, error) {
	var emails []string
	if err := r.DB.WithContext(ctx).Model(&model.CollectionCollaborator{}).
		Where("collection_id = ? AND status IN ?", collectionID,
			[]model.CollaboratorStatus{model.CollaboratorPending, model.CollaboratorAccepted}).
		Pluck("email", &emails).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		set[strings.ToLower(e)] = true
	}
	return set, nil
}

func (r *CollaboratorRepository) List(ctx context.Context, collectionID uint64) ([]CollaboratorView, error) {
	var list []CollaboratorView
	err := r.DB.WithContext(ctx).Model(&model.CollectionCollaborator{}).
		Select("collection_collaborators.*, users.username, users.display_name, users.avatar_url").
		Joins("LEFT JOIN users ON users.id = collection_collaborators.user_id").
		Where("collection_collaborators.collection_id = ?", collectionID).
		Order("collection_collaborators.id ASC").
		Scan(&list).Error
	return list, err
}

// UpdateCode 重发邀请：替换验证码并重置有效期，仅对 pending 行生效
func (r *CollaboratorRepository) UpdateCode(ctx context.Context, id uint64, code string, expiresAt time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.CollectionCollaborator{}).
		Where("id = ? AND status = ?", id, model.CollaboratorPending).
		Updates(map[string]any{"otp_code": code, "otp_expires_at": expiresAt})
	return res.RowsAffected > 0, res.Error
}

// Accept moves a pending row to accepted with a compare-and-swap on status and
// records the join in the outbox. ok is false when another request consumed the
// invitation first.
func (r *CollaboratorRepository) Accept(ctx context.Context, id, userID, collectionID uint64, at time.Time) (ok bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CollectionCollaborator{}).
			Where("id = ? AND status = ?", id, model.CollaboratorPending).
			Updates(map[string]any{
				"status":       model.CollaboratorAccepted,
				"user_id":      userID,
				"responded_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		ok = true
		return insertOutbox(tx, model.EventCollectionJoin, userID, collectionID)
	})
	return ok, err
}

func (r *CollaboratorRepository) Delete(ctx context.Context, collectionID, id uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND collection_id = ?", id, collectionID).
		Delete(&model.CollectionCollaborator{})
	return res.RowsAffected > 0, res.Error
}

// DeleteAccepted 协作者主动退出
func (r *CollaboratorRepository) DeleteAccepted(ctx context.Context, collectionID, userID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("collection_id = ? AND user_id = ? AND status = ?", collectionID, userID, model.CollaboratorAccepted).
		Delete(&model.CollectionCollaborator{})
	return res.RowsAffected > 0, res.Error
}
