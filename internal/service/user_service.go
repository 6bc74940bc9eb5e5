package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Lens_Community/internal/config"
	"Lens_Community/internal/model"
	"Lens_Community/internal/pkg"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = apierrors.ErrAuthenticationRequired.WithMessage("invalid credentials")

type UserService struct {
	repo            *mysql.UserRepository
	sessions        *mysql.SessionRepository
	signer          *pkg.TokenSigner
	sessionTTL      time.Duration
	superAdminEmail string
	log             *zap.Logger
	now             func() time.Time
}

func NewUserService(db *gorm.DB, signer *pkg.TokenSigner, cfg config.AuthConfig, log *zap.Logger) *UserService {
	return &UserService{
		repo:            &mysql.UserRepository{DB: db},
		sessions:        &mysql.SessionRepository{DB: db},
		signer:          signer,
		sessionTTL:      cfg.SessionTTL,
		superAdminEmail: normalizeEmail(cfg.SuperAdminEmail),
		log:             log,
		now:             time.Now,
	}
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Role        model.Role
}

// Register 创建账号并直接登录
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, *model.Session, error) {
	role := in.Role
	switch role {
	case "":
		role = model.RolePhotographer
	case model.RolePhotographer, model.RoleCompany:
	default:
		return nil, nil, apierrors.Validation("role must be photographer or company")
	}
	email := normalizeEmail(in.Email)
	if s.superAdminEmail != "" && email == s.superAdminEmail {
		role = model.RoleSuperAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		Username:    strings.TrimSpace(in.Username),
		Email:       email,
		Password:    string(hash),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        role,
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if mysql.IsDuplicate(err) {
			return nil, nil, apierrors.ErrConflict.WithMessage("username or email already taken")
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("user registered", zap.Uint64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, session, nil
}

// Login 用户名或邮箱 + 密码；每次登录都新建一个会话
func (s *UserService) Login(ctx context.Context, login, password string) (*model.User, *model.Session, error) {
	user, err := s.repo.FindByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if mysql.IsNotFound(err) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, errInvalidCredentials
	}
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

func (s *UserService) createSession(ctx context.Context, userID uint64) (*model.Session, error) {
	token, expiresAt, err := s.signer.GenerateSessionToken(userID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	session := &model.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Validate resolves a token to its user. The session row decides validity:
// it must exist and expire strictly after now.
func (s *UserService) Validate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apierrors.ErrAuthenticationRequired
	}
	claims, err := s.signer.ParseSessionToken(token)
	if err != nil {
		return nil, apierrors.ErrAuthenticationRequired.WithMessage("invalid or expired session")
	}
	session, err := s.sessions.FindValid(ctx, token, s.now())
	if err != nil {
		if mysql.IsNotFound(err) {
			return nil, apierrors.ErrAuthenticationRequired.WithMessage("invalid or expired session")
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session.UserID != claims.UserID {
		return nil, apierrors.ErrAuthenticationRequired.WithMessage("invalid or expired session")
	}
	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if mysql.IsNotFound(err) {
			return nil, apierrors.ErrAuthenticationRequired
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// Logout 只删除当前会话，其他设备的会话保持有效
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteByToken(ctx, token)
}

// ChangePassword 登录态修改密码，成功后所有会话失效
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return apierrors.Validation("old password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.sessions.DeleteByUser(ctx, userID)
}

// GetProfile recomputes the denormalized counters before returning the user.
func (s *UserService) GetProfile(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	c, err := s.repo.RealCounters(ctx, userID)
	if err != nil {
		s.log.Warn("recount user counters", zap.Uint64("user_id", userID), zap.Error(err))
		return user, nil
	}
	if err := s.repo.SaveCounters(ctx, userID, c); err != nil {
		s.log.Warn("save user counters", zap.Uint64("user_id", userID), zap.Error(err))
	}
	user.FollowerCount = c.FollowerCount
	user.FollowingCount = c.FollowingCount
	user.UploadCount = c.UploadCount
	user.ViewCount = c.ViewCount
	user.DownloadCount = c.DownloadCount
	return user, nil
}

type ProfileInput struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
	Website     *string
	Location    *string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (*model.User, error) {
	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	set("display_name", in.DisplayName)
	set("bio", in.Bio)
	set("avatar_url", in.AvatarURL)
	set("website", in.Website)
	set("location", in.Location)
	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

// EnsureSuperAdmin promotes the configured account at startup.
func (s *UserService) EnsureSuperAdmin(ctx context.Context) error {
	if s.superAdminEmail == "" {
		return nil
	}
	user, err := s.repo.FindByEmail(ctx, s.superAdminEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("super admin account not registered yet", zap.String("email", s.superAdminEmail))
			return nil
		}
		return err
	}
	if user.Role == model.RoleSuperAdmin {
		return nil
	}
	s.log.Info("promoting super admin", zap.Uint64("user_id", user.ID))
	return s.repo.SetRole(ctx, user.ID, model.RoleSuperAdmin)
}
