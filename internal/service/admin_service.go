package service

import (
	"context"
	"fmt"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AdminService struct {
	users *mysql.UserRepository
	log   *zap.Logger
}

func NewAdminService(db *gorm.DB, log *zap.Logger) *AdminService {
	return &AdminService{
		users: &mysql.UserRepository{DB: db},
		log:   log,
	}
}

// authorize 管理接口统一入口：admin 与 super_admin 可用
func (s *AdminService) authorize(ctx context.Context, actorID uint64) (*model.User, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if mysql.IsNotFound(err) {
			return nil, apierrors.ErrAuthenticationRequired
		}
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if !actor.Role.IsAdmin() {
		return nil, apierrors.Forbidden("admin access required")
	}
	return actor, nil
}

func (s *AdminService) ListUsers(ctx context.Context, actorID uint64, query string, page Page) ([]model.User, int64, error) {
	if _, err := s.authorize(ctx, actorID); err != nil {
		return nil, 0, err
	}
	users, total, err := s.users.List(ctx, query, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// DeleteUser removes the account and everything it owns. Admin accounts can
// only be deleted by a super admin; super admins cannot be deleted here.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID uint64) error {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return err
	}
	if actorID == userID {
		return apierrors.Validation("cannot delete your own account")
	}
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user")
	}
	switch target.Role {
	case model.RoleSuperAdmin:
		return apierrors.Forbidden("super admin cannot be deleted")
	case model.RoleAdmin:
		if actor.Role != model.RoleSuperAdmin {
			return apierrors.Forbidden("only a super admin can delete admins")
		}
	case model.RolePhotographer, model.RoleCompany:
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user deleted", zap.Uint64("user_id", userID), zap.Uint64("actor_id", actorID))
	return nil
}

// SetRole 仅 super_admin 可授予或撤销 admin；super_admin 角色只来自配置
func (s *AdminService) SetRole(ctx context.Context, actorID, userID uint64, role model.Role) (*model.User, error) {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	switch role {
	case model.RoleSuperAdmin:
		return nil, apierrors.Validation("super_admin cannot be assigned")
	case model.RoleAdmin, model.RolePhotographer, model.RoleCompany:
	default:
		return nil, apierrors.Validation("unknown role")
	}
	if target.Role == model.RoleSuperAdmin {
		return nil, apierrors.Forbidden("super admin role cannot be changed")
	}
	if (role == model.RoleAdmin || target.Role == model.RoleAdmin) && actor.Role != model.RoleSuperAdmin {
		return nil, apierrors.Forbidden("only a super admin can grant or revoke admin")
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	target.Role = role
	s.log.Info("role changed", zap.Uint64("user_id", userID), zap.String("role", string(role)), zap.Uint64("actor_id", actorID))
	return target, nil
}

func (s *AdminService) Stats(ctx context.Context, actorID uint64) (*mysql.Stats, error) {
	if _, err := s.authorize(ctx, actorID); err != nil {
		return nil, err
	}
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}
