package handler

import (
	"net/http"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	svc *service.AdminService
}

type SetRoleReq struct {
	Role string `json:"role" binding:"required"`
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Users ?q= 按用户名或邮箱搜索
func (h *AdminHandler) Users(c *gin.Context) {
	users, total, err := h.svc.ListUsers(c.Request.Context(), userIDFromCtx(c), c.Query("q"), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), userIDFromCtx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) SetRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SetRoleReq
	if !bindJSON(c, &req) {
		return
	}
	role, valid := model.ParseRole(req.Role)
	if !valid {
		respondError(c, apierrors.Validation("unknown role"))
		return
	}
	user, err := h.svc.SetRole(c.Request.Context(), userIDFromCtx(c), id, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
