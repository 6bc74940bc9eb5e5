package handler

import (
	"context"
	"net/http"
	"strconv"

	"Lens_Community/internal/model"
	"Lens_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	svc *service.FollowService
}

func NewFollowHandler(svc *service.FollowService) *FollowHandler {
	return &FollowHandler{svc: svc}
}

// Toggle 关注/取消关注
func (h *FollowHandler) Toggle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	following, err := h.svc.Toggle(c.Request.Context(), userIDFromCtx(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// ListFollowings 获取关注列表
func (h *FollowHandler) ListFollowings(c *gin.Context) {
	h.list(c, h.svc.ListFollowings)
}

// ListFollowers 获取粉丝列表
func (h *FollowHandler) ListFollowers(c *gin.Context) {
	h.list(c, h.svc.ListFollowers)
}

func (h *FollowHandler) list(c *gin.Context, fetch func(ctx context.Context, userID, cursor uint64, limit int) ([]model.Follow, uint64, error)) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, next, err := fetch(c.Request.Context(), userID, cursor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows, "next_cursor": next})
}

// Relation 获取用户间关系
func (h *FollowHandler) Relation(c *gin.Context) {
	to, ok := paramID(c, "id")
	if !ok {
		return
	}
	following, err := h.svc.IsFollowing(c.Request.Context(), userIDFromCtx(c), to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}
