package handler

import (
	"net/http"

	"Lens_Community/internal/config"
	"Lens_Community/internal/middleware"
	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc  *service.UserService
	auth config.AuthConfig
}

// RegisterReq 注册请求体
type RegisterReq struct {
	Username    string `json:"username" binding:"required,min=3,max=32"`
	Email       string `json:"email" binding:"required,email,max=128"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"max=64"`
	Role        string `json:"role" binding:"omitempty,oneof=photographer company"`
}

// LoginReq 三个标识字段任填其一
type LoginReq struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

func (r LoginReq) identifier() string {
	for _, v := range []string{r.Login, r.Email, r.Username} {
		if v != "" {
			return v
		}
	}
	return ""
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

type UpdateProfileReq struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=64"`
	Bio         *string `json:"bio" binding:"omitempty,max=2000"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=512"`
	Website     *string `json:"website" binding:"omitempty,max=255"`
	Location    *string `json:"location" binding:"omitempty,max=128"`
}

func NewUserHandler(svc *service.UserService, auth config.AuthConfig) *UserHandler {
	return &UserHandler{svc: svc, auth: auth}
}

func (h *UserHandler) setSessionCookie(c *gin.Context, s *model.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.auth.CookieName, s.Token, int(h.auth.SessionTTL.Seconds()), "/", "", h.auth.CookieSecure, true)
}

// Register 注册接口，成功后直接登录
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterReq
	if !bindJSON(c, &req) {
		return
	}
	user, session, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        model.Role(req.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, session)
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": session.Token, "expires_at": session.ExpiresAt})
}

// Login 登录接口，login 可以是用户名或邮箱
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginReq
	if !bindJSON(c, &req) {
		return
	}
	if req.identifier() == "" {
		respondError(c, apierrors.Validation("email or username is required"))
		return
	}
	user, session, err := h.svc.Login(c.Request.Context(), req.identifier(), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, session)
	c.JSON(http.StatusOK, gin.H{"user": user, "token": session.Token, "expires_at": session.ExpiresAt})
}

func (h *UserHandler) Logout(c *gin.Context) {
	token := middleware.TokenFromRequest(c, h.auth.CookieName)
	if token != "" {
		if err := h.svc.Logout(c.Request.Context(), token); err != nil {
			respondError(c, err)
			return
		}
	}
	c.SetCookie(h.auth.CookieName, "", -1, "/", "", h.auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.svc.GetProfile(c.Request.Context(), userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), userIDFromCtx(c), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(h.auth.CookieName, "", -1, "/", "", h.auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"msg": "change password successfully"})
}

func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileReq
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), userIDFromCtx(c), service.ProfileInput{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		Website:     req.Website,
		Location:    req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
