package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"
	"Lens_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PhotoHandler struct {
	svc *service.PhotoService
}

type UpdatePhotoReq struct {
	Title       *string  `json:"title" binding:"omitempty,max=255"`
	Description *string  `json:"description" binding:"omitempty,max=5000"`
	CategoryID  *uint64  `json:"category_id"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,max=64"`
}

type CreateCategoryReq struct {
	Name string `json:"name" binding:"required,max=64"`
}

func NewPhotoHandler(svc *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{svc: svc}
}

// List 支持 user_id/category/tag/q 过滤与 sort 排序
func (h *PhotoHandler) List(c *gin.Context) {
	var filter mysql.PhotoFilter
	filter.OwnerID, _ = strconv.ParseUint(c.Query("user_id"), 10, 64)
	filter.CategoryID, _ = strconv.ParseUint(c.Query("category"), 10, 64)
	filter.Tag = strings.TrimSpace(c.Query("tag"))
	filter.Query = strings.TrimSpace(c.Query("q"))

	list, err := h.svc.ListPhotos(c.Request.Context(), filter, c.DefaultQuery("sort", mysql.SortNewest), userIDFromCtx(c), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": list})
}

// Upload 处理 multipart 上传，表单字段 photos 可重复
func (h *PhotoHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, apierrors.Validation("multipart form expected"))
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		files = form.File["photo"]
	}
	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Open: opener(fh)})
	}

	meta := service.PhotoMeta{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: c.PostForm("description"),
		Status:      model.PhotoDraft,
	}
	if v := c.PostForm("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(c, apierrors.Validation("category_id must be a number"))
			return
		}
		meta.CategoryID = &id
	}
	if v := c.PostForm("tags"); v != "" {
		meta.Tags = strings.Split(v, ",")
	}
	if v := c.PostForm("status"); v != "" {
		st, ok := model.ParsePhotoStatus(v)
		if !ok {
			respondError(c, apierrors.Validation("status must be draft or live"))
			return
		}
		meta.Status = st
	}

	created, err := h.svc.UploadPhotos(c.Request.Context(), userIDFromCtx(c), uploads, meta)
	if err != nil {
		// 部分成功时把已保存的照片一并带回
		if apiErr, ok := apierrors.AsAPIError(err); ok && len(created) > 0 {
			c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message, "code": apiErr.Code, "photos": created})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"photos": created})
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}

func (h *PhotoHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	requester := userIDFromCtx(c)
	photo, err := h.svc.GetPhoto(c.Request.Context(), id, requester)
	if err != nil {
		respondError(c, err)
		return
	}
	liked, err := h.svc.IsLiked(c.Request.Context(), id, requester)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": photo, "liked": liked})
}

func (h *PhotoHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdatePhotoReq
	if !bindJSON(c, &req) {
		return
	}
	photo, err := h.svc.UpdatePhoto(c.Request.Context(), id, userIDFromCtx(c), service.PhotoUpdate{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": photo})
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePhoto(c.Request.Context(), id, userIDFromCtx(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PhotoHandler) Publish(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	photo, err := h.svc.Publish(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": photo})
}

// ToggleLike 点赞/取消点赞
func (h *PhotoHandler) ToggleLike(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	liked, count, err := h.svc.ToggleLike(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}

func (h *PhotoHandler) ToggleSave(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	saved, err := h.svc.ToggleSave(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

func (h *PhotoHandler) View(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RecordView(c.Request.Context(), id, userIDFromCtx(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// Download 计数后返回原图地址
func (h *PhotoHandler) Download(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	photo, err := h.svc.RecordDownload(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": "/uploads/" + photo.FilePath, "download_count": photo.Downloads})
}

func (h *PhotoHandler) Saved(c *gin.Context) {
	list, err := h.svc.SavedPhotos(c.Request.Context(), userIDFromCtx(c), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": list})
}

func (h *PhotoHandler) Categories(c *gin.Context) {
	list, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *PhotoHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryReq
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": cat})
}
