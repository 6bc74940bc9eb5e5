package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Lens_Community/internal/model"
	"Lens_Community/internal/pkg"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"
	rcache "Lens_Community/internal/repository/redis"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Upload is one file of a multipart upload.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

type PhotoMeta struct {
	Title       string
	Description string
	CategoryID  *uint64
	Tags        []string
	Status      model.PhotoStatus
}

type PhotoService struct {
	photos     *mysql.PhotoRepository
	likes      *mysql.PhotoLikeRepository
	categories *mysql.CategoryRepository
	users      *mysql.UserRepository
	likeCache  *rcache.LikeCacheRepository
	lock       *rcache.DistLock
	notifier   Notifier
	uploadDir  string
	log        *zap.Logger
	now        func() time.Time
}

// NewPhotoService wires the like-count cache only when rdb is non-nil.
func NewPhotoService(db *gorm.DB, rdb *redis.Client, notifier Notifier, uploadDir string, log *zap.Logger) *PhotoService {
	s := &PhotoService{
		photos:     &mysql.PhotoRepository{DB: db},
		likes:      &mysql.PhotoLikeRepository{DB: db},
		categories: &mysql.CategoryRepository{DB: db},
		users:      &mysql.UserRepository{DB: db},
		notifier:   notifier,
		uploadDir:  uploadDir,
		log:        log,
		now:        time.Now,
	}
	if rdb != nil {
		s.likeCache = rcache.NewLikeCacheRepository(rdb)
		s.lock = &rcache.DistLock{RDB: rdb}
	}
	return s
}

// UploadPhotos stores files one after another. A failure stops the batch;
// photos stored before it stay and are returned with the error.
func (s *PhotoService) UploadPhotos(ctx context.Context, ownerID uint64, files []Upload, meta PhotoMeta) ([]model.Photo, error) {
	if len(files) == 0 {
		return nil, apierrors.Validation("no files uploaded")
	}
	if meta.Status == "" {
		meta.Status = model.PhotoDraft
	}
	tags, err := s.photos.FindOrCreateTags(ctx, meta.Tags)
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}

	created := make([]model.Photo, 0, len(files))
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Filename))
		if !allowedImageExt[ext] {
			return created, apierrors.Validation(fmt.Sprintf("unsupported file type %q", f.Filename))
		}
		orig, thumb, w, h, err := s.store(f, ext)
		if err != nil {
			return created, err
		}
		title := meta.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(f.Filename), filepath.Ext(f.Filename))
		}
		photo := model.Photo{
			UserID:        ownerID,
			CategoryID:    meta.CategoryID,
			Title:         title,
			Description:   meta.Description,
			FilePath:      orig,
			ThumbnailPath: thumb,
			Width:         w,
			Height:        h,
			Status:        model.PhotoDraft,
			Tags:          tags,
		}
		p, err := s.CreatePhoto(ctx, &photo, meta.Status)
		if err != nil {
			return created, err
		}
		uploadsTotal.Inc()
		created = append(created, *p)
	}
	return created, nil
}

// store 保存原图并生成缩略图，返回相对路径
func (s *PhotoService) store(f Upload, ext string) (orig, thumb string, w, h int, err error) {
	src, err := f.Open()
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	origName, thumbName := pkg.UploadNames(ext)
	origPath := filepath.Join(s.uploadDir, origName)
	dst, err := os.Create(origPath)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", "", 0, 0, fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", "", 0, 0, err
	}

	in, err := os.Open(origPath)
	if err != nil {
		return "", "", 0, 0, err
	}
	defer in.Close()
	out, err := os.Create(filepath.Join(s.uploadDir, thumbName))
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("create thumbnail: %w", err)
	}
	defer out.Close()
	w, h, err = pkg.Thumbnail(in, out)
	if err != nil {
		return "", "", 0, 0, apierrors.Validation("file is not a valid image")
	}
	return "uploads/" + origName, "uploads/" + thumbName, w, h, nil
}

// CreatePhoto inserts a draft; status live goes through Publish so the owner's
// upload counter moves exactly once.
func (s *PhotoService) CreatePhoto(ctx context.Context, photo *model.Photo, status model.PhotoStatus) (*model.Photo, error) {
	photo.Status = model.PhotoDraft
	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, fmt.Errorf("create photo: %w", err)
	}
	if status == model.PhotoLive {
		return s.Publish(ctx, photo.ID, photo.UserID)
	}
	return photo, nil
}

// Publish 草稿发布为 live；已发布时幂等返回
func (s *PhotoService) Publish(ctx context.Context, photoID, requester uint64) (*model.Photo, error) {
	photo, err := s.owned(ctx, photoID, requester)
	if err != nil {
		return nil, err
	}
	if _, err := s.photos.Publish(ctx, photo.ID, requester, s.now()); err != nil {
		return nil, fmt.Errorf("publish photo: %w", err)
	}
	return s.photos.FindByID(ctx, photoID)
}

// GetPhoto hides drafts from everyone but the owner.
func (s *PhotoService) GetPhoto(ctx context.Context, photoID, requester uint64) (*model.Photo, error) {
	photo, err := s.photos.FindByID(ctx, photoID)
	if err != nil {
		return nil, notFoundOr(err, "photo")
	}
	if !photo.VisibleTo(requester) {
		return nil, apierrors.NotFound("photo")
	}
	return photo, nil
}

func (s *PhotoService) owned(ctx context.Context, photoID, requester uint64) (*model.Photo, error) {
	photo, err := s.GetPhoto(ctx, photoID, requester)
	if err != nil {
		return nil, err
	}
	if photo.UserID != requester {
		return nil, apierrors.Forbidden("only the owner can modify this photo")
	}
	return photo, nil
}

// ListPhotos shows drafts only when requester lists their own photos.
func (s *PhotoService) ListPhotos(ctx context.Context, filter mysql.PhotoFilter, sort string, requester uint64, page Page) ([]model.Photo, error) {
	filter.IncludeDraft = filter.OwnerID != 0 && filter.OwnerID == requester
	list, err := s.photos.List(ctx, filter, sort, page.Offset(), page.Limit())
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return list, nil
}

type PhotoUpdate struct {
	Title       *string
	Description *string
	CategoryID  *uint64
	Tags        []string
}

func (s *PhotoService) UpdatePhoto(ctx context.Context, photoID, requester uint64, in PhotoUpdate) (*model.Photo, error) {
	photo, err := s.owned(ctx, photoID, requester)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *in.CategoryID); err != nil {
			return nil, notFoundOr(err, "category")
		}
		fields["category_id"] = *in.CategoryID
	}
	var tags []model.Tag
	if in.Tags != nil {
		if tags, err = s.photos.FindOrCreateTags(ctx, in.Tags); err != nil {
			return nil, fmt.Errorf("tags: %w", err)
		}
	}
	if err := s.photos.UpdateMeta(ctx, photo, fields, tags); err != nil {
		return nil, fmt.Errorf("update photo: %w", err)
	}
	return s.photos.FindByID(ctx, photoID)
}

// DeletePhoto removes the row, its join rows and the stored files.
func (s *PhotoService) DeletePhoto(ctx context.Context, photoID, requester uint64) error {
	photo, err := s.owned(ctx, photoID, requester)
	if err != nil {
		return err
	}
	if err := s.photos.Delete(ctx, photo.ID); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	for _, p := range []string{photo.FilePath, photo.ThumbnailPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, filepath.Base(p))); err != nil && !os.IsNotExist(err) {
			s.log.Warn("remove photo file", zap.Uint64("photo_id", photo.ID), zap.String("path", p), zap.Error(err))
		}
	}
	return nil
}

// RecordView bumps photo and owner counters as two independent statements.
func (s *PhotoService) RecordView(ctx context.Context, photoID, requester uint64) error {
	return s.bump(ctx, photoID, requester, "views", "view_count")
}

func (s *PhotoService) RecordDownload(ctx context.Context, photoID, requester uint64) (*model.Photo, error) {
	if err := s.bump(ctx, photoID, requester, "downloads", "download_count"); err != nil {
		return nil, err
	}
	return s.photos.FindByID(ctx, photoID)
}

func (s *PhotoService) bump(ctx context.Context, photoID, requester uint64, photoCol, userCol string) error {
	photo, err := s.GetPhoto(ctx, photoID, requester)
	if err != nil {
		return err
	}
	if err := s.photos.IncrementCounter(ctx, photo.ID, photoCol); err != nil {
		return fmt.Errorf("increment %s: %w", photoCol, err)
	}
	if err := s.users.IncrementCounter(ctx, photo.UserID, userCol); err != nil {
		s.log.Warn("increment user counter", zap.Uint64("user_id", photo.UserID), zap.String("column", userCol), zap.Error(err))
	}
	return nil
}

// ToggleLike 先写库，再删计数缓存（延迟二删），由读侧回填
func (s *PhotoService) ToggleLike(ctx context.Context, photoID, requester uint64) (bool, int64, error) {
	photo, err := s.GetPhoto(ctx, photoID, requester)
	if err != nil {
		return false, 0, err
	}
	liked, err := s.likes.ToggleLike(ctx, requester, photo.ID)
	if err != nil {
		return false, 0, fmt.Errorf("toggle like: %w", err)
	}
	if s.likeCache != nil {
		if err := s.likeCache.DeleteCount(ctx, photo.ID, 500*time.Millisecond); err != nil {
			s.log.Warn("drop like cache", zap.Uint64("photo_id", photo.ID), zap.Error(err))
		}
	}
	if liked && photo.UserID != requester {
		s.notifier.Notify(photo.UserID, model.NotifyPhotoLike,
			fmt.Sprintf("Someone liked your photo \"%s\"", photo.Title),
			ptr(photo.ID), fmt.Sprintf("/photos/%d", photo.ID))
	}
	count, err := s.LikeCount(ctx, photo.ID)
	if err != nil {
		return liked, 0, err
	}
	return liked, count, nil
}

func (s *PhotoService) ToggleSave(ctx context.Context, photoID, requester uint64) (bool, error) {
	photo, err := s.GetPhoto(ctx, photoID, requester)
	if err != nil {
		return false, err
	}
	return s.likes.ToggleSave(ctx, requester, photo.ID)
}

func (s *PhotoService) IsLiked(ctx context.Context, photoID, requester uint64) (bool, error) {
	if requester == 0 {
		return false, nil
	}
	return s.likes.IsLiked(ctx, requester, photoID)
}

// LikeCount 读缓存，未命中时加锁回源，拿不到锁则短暂退避后再读一次
func (s *PhotoService) LikeCount(ctx context.Context, photoID uint64) (int64, error) {
	if s.likeCache == nil {
		return s.likes.GetLikeCount(ctx, photoID)
	}
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, photoID); err == nil && ok {
		return v, nil
	}
	token := fmt.Sprintf("%d-%d", photoID, time.Now().UnixNano())
	got, _ := s.lock.Acquire(ctx, photoID, token)
	if got {
		defer func() {
			if err := s.lock.Release(ctx, photoID, token); err != nil {
				s.log.Warn("release like lock", zap.Uint64("photo_id", photoID), zap.Error(err))
			}
		}()
		// 第二次检查
		if v, ok, err := s.likeCache.GetLikeCountCached(ctx, photoID); err == nil && ok {
			return v, nil
		}
		v, err := s.likes.GetLikeCount(ctx, photoID)
		if err != nil {
			return 0, err
		}
		_ = s.likeCache.SetLikeCount(ctx, photoID, v)
		return v, nil
	}

	time.Sleep(50 * time.Millisecond)
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, photoID); err == nil && ok {
		return v, nil
	}
	return s.likes.GetLikeCount(ctx, photoID)
}

func (s *PhotoService) SavedPhotos(ctx context.Context, userID uint64, page Page) ([]model.Photo, error) {
	return s.likes.SavedPhotos(ctx, userID, page.Offset(), page.Limit())
}

func (s *PhotoService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

func (s *PhotoService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierrors.Validation("category name is required")
	}
	c := &model.Category{Name: name, Slug: slugify(name)}
	if err := s.categories.Create(ctx, c); err != nil {
		if mysql.IsDuplicate(err) {
			return nil, apierrors.ErrConflict.WithMessage("category already exists")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
