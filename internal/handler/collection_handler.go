package handler

import (
	"net/http"
	"strings"

	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type CollectionHandler struct {
	svc *service.CollectionService
}

type CreateCollectionReq struct {
	Title              string   `json:"title" binding:"required,max=255"`
	Description        string   `json:"description" binding:"max=5000"`
	IsPrivate          bool     `json:"is_private"`
	IsCollaborative    bool     `json:"is_collaborative"`
	CoverPhotoID       *uint64  `json:"cover_photo_id"`
	PhotoIDs           []uint64 `json:"photo_ids"`
	CollaboratorEmails []string `json:"collaborator_emails" binding:"omitempty,max=50,dive,email"`
}

type UpdateCollectionReq struct {
	Title              *string   `json:"title" binding:"omitempty,max=255"`
	Description        *string   `json:"description" binding:"omitempty,max=5000"`
	IsPrivate          *bool     `json:"is_private"`
	IsCollaborative    *bool     `json:"is_collaborative"`
	CoverPhotoID       *uint64   `json:"cover_photo_id"`
	PhotoIDs           *[]uint64 `json:"photo_ids"`
	CollaboratorEmails []string  `json:"collaborator_emails" binding:"omitempty,max=50,dive,email"`
}

type PhotoIDsReq struct {
	PhotoIDs []uint64 `json:"photo_ids" binding:"required,min=1"`
}

type InviteReq struct {
	Emails []string `json:"emails" binding:"required,min=1,max=50,dive,email"`
}

// JoinReq 兼容 otpCode 与 otp_code 两种写法
type JoinReq struct {
	OTPCode      string `json:"otpCode"`
	OTPCodeSnake string `json:"otp_code"`
}

func (r JoinReq) code() string {
	if r.OTPCode != "" {
		return strings.TrimSpace(r.OTPCode)
	}
	return strings.TrimSpace(r.OTPCodeSnake)
}

type CommentReq struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *uint64 `json:"parent_id"`
}

func NewCollectionHandler(svc *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{svc: svc}
}

func identifier(c *gin.Context) string {
	return c.Param("identifier")
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var req CreateCollectionReq
	if !bindJSON(c, &req) {
		return
	}
	detail, err := h.svc.CreateCollection(c.Request.Context(), userIDFromCtx(c), service.CollectionInput{
		Title:              req.Title,
		Description:        req.Description,
		IsPrivate:          req.IsPrivate,
		IsCollaborative:    req.IsCollaborative,
		CoverPhotoID:       req.CoverPhotoID,
		PhotoIDs:           req.PhotoIDs,
		CollaboratorEmails: req.CollaboratorEmails,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"collection": detail})
}

// List 公开收藏夹
func (h *CollectionHandler) List(c *gin.Context) {
	list, err := h.svc.ListCollections(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": list})
}

// Mine 自己创建的以及已加入协作的收藏夹
func (h *CollectionHandler) Mine(c *gin.Context) {
	list, err := h.svc.ListMyCollections(c.Request.Context(), userIDFromCtx(c), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": list})
}

func (h *CollectionHandler) UserCollections(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListUserCollections(c.Request.Context(), userID, userIDFromCtx(c), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": list})
}

func (h *CollectionHandler) Get(c *gin.Context) {
	detail, err := h.svc.GetCollection(c.Request.Context(), identifier(c), userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": detail})
}

func (h *CollectionHandler) Update(c *gin.Context) {
	var req UpdateCollectionReq
	if !bindJSON(c, &req) {
		return
	}
	detail, err := h.svc.UpdateCollection(c.Request.Context(), identifier(c), userIDFromCtx(c), service.CollectionUpdate{
		Title:              req.Title,
		Description:        req.Description,
		IsPrivate:          req.IsPrivate,
		IsCollaborative:    req.IsCollaborative,
		CoverPhotoID:       req.CoverPhotoID,
		PhotoIDs:           req.PhotoIDs,
		CollaboratorEmails: req.CollaboratorEmails,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": detail})
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteCollection(c.Request.Context(), identifier(c), userIDFromCtx(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CollectionHandler) AddPhotos(c *gin.Context) {
	var req PhotoIDsReq
	if !bindJSON(c, &req) {
		return
	}
	detail, err := h.svc.AddPhotos(c.Request.Context(), identifier(c), userIDFromCtx(c), req.PhotoIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": detail})
}

func (h *CollectionHandler) RemovePhoto(c *gin.Context) {
	photoID, ok := paramID(c, "photoId")
	if !ok {
		return
	}
	if err := h.svc.RemovePhoto(c.Request.Context(), identifier(c), userIDFromCtx(c), photoID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Join 用邀请码加入协作
func (h *CollectionHandler) Join(c *gin.Context) {
	var req JoinReq
	if !bindJSON(c, &req) {
		return
	}
	if req.code() == "" {
		respondError(c, apierrors.Validation("otpCode is required"))
		return
	}
	collab, err := h.svc.AcceptInvitation(c.Request.Context(), identifier(c), userIDFromCtx(c), req.code())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "joined", "collaborator": collab})
}

func (h *CollectionHandler) Leave(c *gin.Context) {
	if err := h.svc.LeaveCollection(c.Request.Context(), identifier(c), userIDFromCtx(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *CollectionHandler) Collaborators(c *gin.Context) {
	list, err := h.svc.ListCollaborators(c.Request.Context(), identifier(c), userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborators": list})
}

func (h *CollectionHandler) Invite(c *gin.Context) {
	var req InviteReq
	if !bindJSON(c, &req) {
		return
	}
	invited, err := h.svc.InviteCollaborators(c.Request.Context(), identifier(c), userIDFromCtx(c), req.Emails)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invited": invited})
}

func (h *CollectionHandler) RemoveCollaborator(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RemoveCollaborator(c.Request.Context(), identifier(c), userIDFromCtx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CollectionHandler) ResendInvitation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.ResendInvitation(c.Request.Context(), identifier(c), userIDFromCtx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "invitation sent"})
}

func (h *CollectionHandler) ToggleLike(c *gin.Context) {
	liked, count, err := h.svc.ToggleLike(c.Request.Context(), identifier(c), userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}

func (h *CollectionHandler) View(c *gin.Context) {
	if err := h.svc.RecordView(c.Request.Context(), identifier(c), userIDFromCtx(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// Comments 默认顶层评论，parent_id 指定时返回该评论的回复
func (h *CollectionHandler) Comments(c *gin.Context) {
	var parentID uint64
	if v := c.Query("parent_id"); v != "" {
		id, ok := parseQueryID(v)
		if !ok {
			respondError(c, apierrors.Validation("parent_id must be a number"))
			return
		}
		parentID = id
	}
	list, err := h.svc.ListComments(c.Request.Context(), identifier(c), userIDFromCtx(c), parentID, pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": list})
}

func (h *CollectionHandler) AddComment(c *gin.Context) {
	var req CommentReq
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.svc.AddComment(c.Request.Context(), identifier(c), userIDFromCtx(c), req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *CollectionHandler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "commentId")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), identifier(c), userIDFromCtx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CollectionHandler) ToggleCommentLike(c *gin.Context) {
	id, ok := paramID(c, "commentId")
	if !ok {
		return
	}
	liked, err := h.svc.ToggleCommentLike(c.Request.Context(), identifier(c), userIDFromCtx(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}
