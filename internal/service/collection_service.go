package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Standing is a user's relation to one collection, recomputed per request.
type Standing int

const (
	StandingVisitor Standing = iota
	StandingCollaborator
	StandingOwner
)

func (s Standing) String() string {
	switch s {
	case StandingOwner:
		return "owner"
	case StandingCollaborator:
		return "collaborator"
	case StandingVisitor:
		return "visitor"
	}
	return "unknown"
}

func (s Standing) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanView 公开收藏集所有人可见，私有的仅所有者与已接受的协作者
func CanView(c *model.Collection, st Standing) bool {
	switch st {
	case StandingOwner, StandingCollaborator:
		return true
	case StandingVisitor:
		return !c.IsPrivate
	}
	return false
}

func CanAddPhotos(c *model.Collection, st Standing) bool {
	switch st {
	case StandingOwner:
		return true
	case StandingCollaborator:
		return c.IsCollaborative
	case StandingVisitor:
		return false
	}
	return false
}

func CanManage(st Standing) bool {
	return st == StandingOwner
}

type CollectionService struct {
	collections   *mysql.CollectionRepository
	collaborators *mysql.CollaboratorRepository
	engagement    *mysql.EngagementRepository
	photos        *mysql.PhotoRepository
	users         *mysql.UserRepository
	mailer        Mailer
	notifier      Notifier
	publicURL     string
	log           *zap.Logger
	now           func() time.Time
}

func NewCollectionService(db *gorm.DB, mailer Mailer, notifier Notifier, publicURL string, log *zap.Logger) *CollectionService {
	return &CollectionService{
		collections:   &mysql.CollectionRepository{DB: db},
		collaborators: &mysql.CollaboratorRepository{DB: db},
		engagement:    &mysql.EngagementRepository{DB: db},
		photos:        &mysql.PhotoRepository{DB: db},
		users:         &mysql.UserRepository{DB: db},
		mailer:        mailer,
		notifier:      notifier,
		publicURL:     strings.TrimRight(publicURL, "/"),
		log:           log,
		now:           time.Now,
	}
}

type CollectionInput struct {
	Title              string
	Description        string
	IsPrivate          bool
	IsCollaborative    bool
	CoverPhotoID       *uint64
	PhotoIDs           []uint64
	CollaboratorEmails []string
}

type CollectionUpdate struct {
	Title              *string
	Description        *string
	IsPrivate          *bool
	IsCollaborative    *bool
	CoverPhotoID       *uint64
	PhotoIDs           *[]uint64
	CollaboratorEmails []string
}

type UserBrief struct {
	ID          uint64 `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func briefOf(u *model.User) *UserBrief {
	return &UserBrief{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// CollectionDetail is a collection as one requester sees it.
type CollectionDetail struct {
	mysql.CollectionSummary
	Owner         *UserBrief               `json:"owner"`
	Photos        []model.Photo            `json:"photos"`
	Collaborators []mysql.CollaboratorView `json:"collaborators,omitempty"`
	Liked         bool                     `json:"liked"`
	Standing      Standing                 `json:"standing"`
}

// Resolve accepts either the public UUID or the internal numeric id.
func (s *CollectionService) Resolve(ctx context.Context, identifier string) (*model.Collection, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		c   *model.Collection
		err error
	)
	if uuidPattern.MatchString(identifier) {
		c, err = s.collections.FindByPublicID(ctx, strings.ToLower(identifier))
	} else {
		id, perr := strconv.ParseUint(identifier, 10, 64)
		if perr != nil {
			return nil, apierrors.NotFound("collection")
		}
		c, err = s.collections.FindByID(ctx, id)
	}
	if err != nil {
		return nil, notFoundOr(err, "collection")
	}
	return c, nil
}

// StandingOf 每次请求都从存储重新计算，不做缓存
func (s *CollectionService) StandingOf(ctx context.Context, c *model.Collection, requester uint64) (Standing, error) {
	if requester == 0 {
		return StandingVisitor, nil
	}
	if c.UserID == requester {
		return StandingOwner, nil
	}
	_, err := s.collaborators.FindAccepted(ctx, c.ID, requester)
	if err == nil {
		return StandingCollaborator, nil
	}
	if mysql.IsNotFound(err) {
		return StandingVisitor, nil
	}
	return StandingVisitor, fmt.Errorf("load standing: %w", err)
}

// load resolves the collection and the requester's standing in one step.
func (s *CollectionService) load(ctx context.Context, identifier string, requester uint64) (*model.Collection, Standing, error) {
	c, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, StandingVisitor, err
	}
	st, err := s.StandingOf(ctx, c, requester)
	if err != nil {
		return nil, StandingVisitor, err
	}
	return c, st, nil
}

func (s *CollectionService) loadViewable(ctx context.Context, identifier string, requester uint64) (*model.Collection, Standing, error) {
	c, st, err := s.load(ctx, identifier, requester)
	if err != nil {
		return nil, st, err
	}
	if !CanView(c, st) {
		if requester == 0 {
			return nil, st, apierrors.ErrAuthenticationRequired
		}
		return nil, st, apierrors.Forbidden("this collection is private")
	}
	return c, st, nil
}

func (s *CollectionService) loadOwned(ctx context.Context, identifier string, requester uint64) (*model.Collection, error) {
	c, st, err := s.load(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	if !CanManage(st) {
		return nil, apierrors.Forbidden("only the owner can manage this collection")
	}
	return c, nil
}

// checkPhotos requires every id to name a photo the requester can see.
func (s *CollectionService) checkPhotos(ctx context.Context, requester uint64, ids []uint64) ([]uint64, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	photos, err := s.photos.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load photos: %w", err)
	}
	visible := make(map[uint64]bool, len(photos))
	for i := range photos {
		if photos[i].VisibleTo(requester) {
			visible[photos[i].ID] = true
		}
	}
	for _, id := range ids {
		if !visible[id] {
			return nil, apierrors.Validation(fmt.Sprintf("photo %d not found", id))
		}
	}
	return ids, nil
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *CollectionService) CreateCollection(ctx context.Context, ownerID uint64, in CollectionInput) (*CollectionDetail, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierrors.Validation("title is required")
	}
	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	photoIDs, err := s.checkPhotos(ctx, ownerID, in.PhotoIDs)
	if err != nil {
		return nil, err
	}
	if in.CoverPhotoID != nil {
		if _, err := s.checkPhotos(ctx, ownerID, []uint64{*in.CoverPhotoID}); err != nil {
			return nil, err
		}
	}

	c := &model.Collection{
		PublicID:        uuid.NewString(),
		UserID:          ownerID,
		Title:           title,
		Description:     in.Description,
		IsPrivate:       in.IsPrivate,
		IsCollaborative: in.IsCollaborative,
		CoverPhotoID:    in.CoverPhotoID,
	}
	if err := s.collections.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	if len(photoIDs) > 0 {
		if err := s.collections.AddPhotos(ctx, c.ID, ownerID, photoIDs); err != nil {
			return nil, fmt.Errorf("add photos: %w", err)
		}
	}
	if c.IsCollaborative && !c.IsPrivate && len(in.CollaboratorEmails) > 0 {
		if _, err := s.invite(ctx, c, owner, in.CollaboratorEmails, false); err != nil {
			return nil, err
		}
	}
	s.log.Info("collection created", zap.Uint64("collection_id", c.ID), zap.Uint64("user_id", ownerID))
	return s.detail(ctx, c, ownerID, StandingOwner)
}

func (s *CollectionService) GetCollection(ctx context.Context, identifier string, requester uint64) (*CollectionDetail, error) {
	c, st, err := s.loadViewable(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, c, requester, st)
}

func (s *CollectionService) detail(ctx context.Context, c *model.Collection, requester uint64, st Standing) (*CollectionDetail, error) {
	summary, err := s.collections.Summary(ctx, c.ID)
	if err != nil {
		return nil, notFoundOr(err, "collection")
	}
	d := &CollectionDetail{CollectionSummary: *summary, Standing: st}

	if owner, err := s.users.FindByID(ctx, c.UserID); err == nil {
		d.Owner = briefOf(owner)
	}
	photos, err := s.collections.Photos(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load collection photos: %w", err)
	}
	d.Photos = make([]model.Photo, 0, len(photos))
	for i := range photos {
		if photos[i].VisibleTo(requester) {
			d.Photos = append(d.Photos, photos[i])
		}
	}
	// 详情里按请求者实际可见的照片计数，自己的草稿也算在内
	d.PhotoCount = int64(len(d.Photos))
	if c.IsCollaborative {
		if d.Collaborators, err = s.collaborators.List(ctx, c.ID); err != nil {
			return nil, fmt.Errorf("load collaborators: %w", err)
		}
	}
	if requester != 0 {
		if d.Liked, err = s.engagement.IsCollectionLiked(ctx, requester, c.ID); err != nil {
			return nil, fmt.Errorf("load like: %w", err)
		}
	}
	return d, nil
}

func (s *CollectionService) ListCollections(ctx context.Context, page Page) ([]mysql.CollectionSummary, error) {
	return s.collections.ListPublic(ctx, page.Offset(), page.Limit())
}

// ListUserCollections includes private collections only for their owner.
func (s *CollectionService) ListUserCollections(ctx context.Context, userID, requester uint64, page Page) ([]mysql.CollectionSummary, error) {
	return s.collections.ListByOwner(ctx, userID, userID == requester, page.Offset(), page.Limit())
}

// ListMyCollections 我创建的和我参与协作的
func (s *CollectionService) ListMyCollections(ctx context.Context, requester uint64, page Page) ([]mysql.CollectionSummary, error) {
	return s.collections.ListMine(ctx, requester, page.Offset(), page.Limit())
}

func (s *CollectionService) UpdateCollection(ctx context.Context, identifier string, requester uint64, in CollectionUpdate) (*CollectionDetail, error) {
	c, err := s.loadOwned(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apierrors.Validation("title is required")
		}
		fields["title"] = title
		c.Title = title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
		c.Description = *in.Description
	}
	if in.IsPrivate != nil {
		fields["is_private"] = *in.IsPrivate
		c.IsPrivate = *in.IsPrivate
	}
	if in.IsCollaborative != nil {
		fields["is_collaborative"] = *in.IsCollaborative
		c.IsCollaborative = *in.IsCollaborative
	}
	if in.CoverPhotoID != nil {
		if _, err := s.checkPhotos(ctx, requester, []uint64{*in.CoverPhotoID}); err != nil {
			return nil, err
		}
		fields["cover_photo_id"] = *in.CoverPhotoID
	}
	var photoIDs *[]uint64
	if in.PhotoIDs != nil {
		ids, err := s.checkPhotos(ctx, requester, *in.PhotoIDs)
		if err != nil {
			return nil, err
		}
		photoIDs = &ids
	}
	// 校验全部通过后才落库，元数据与照片集合一起提交
	if err := s.collections.UpdateWithPhotos(ctx, c.ID, fields, requester, photoIDs); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	if c.IsCollaborative && !c.IsPrivate && len(in.CollaboratorEmails) > 0 {
		owner, err := s.users.FindByID(ctx, requester)
		if err != nil {
			return nil, notFoundOr(err, "user")
		}
		// 已是 pending 或 accepted 的邮箱直接跳过
		if _, err := s.invite(ctx, c, owner, in.CollaboratorEmails, true); err != nil {
			return nil, err
		}
	}
	return s.detail(ctx, c, requester, StandingOwner)
}

func (s *CollectionService) DeleteCollection(ctx context.Context, identifier string, requester uint64) error {
	c, err := s.loadOwned(ctx, identifier, requester)
	if err != nil {
		return err
	}
	if err := s.collections.Delete(ctx, c.ID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.log.Info("collection deleted", zap.Uint64("collection_id", c.ID), zap.Uint64("user_id", requester))
	return nil
}

// AddPhotos 所有者或协作收藏集的已接受协作者可添加；重复照片忽略
func (s *CollectionService) AddPhotos(ctx context.Context, identifier string, requester uint64, photoIDs []uint64) (*CollectionDetail, error) {
	c, st, err := s.load(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	if !CanAddPhotos(c, st) {
		return nil, apierrors.Forbidden("you cannot add photos to this collection")
	}
	ids, err := s.checkPhotos(ctx, requester, photoIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apierrors.Validation("photo_ids is required")
	}
	if err := s.collections.AddPhotos(ctx, c.ID, requester, ids); err != nil {
		return nil, fmt.Errorf("add photos: %w", err)
	}
	return s.detail(ctx, c, requester, st)
}

// RemovePhoto is allowed for the owner and for the collaborator who added the photo.
func (s *CollectionService) RemovePhoto(ctx context.Context, identifier string, requester, photoID uint64) error {
	c, st, err := s.load(ctx, identifier, requester)
	if err != nil {
		return err
	}
	membership, err := s.collections.Membership(ctx, c.ID, photoID)
	if err != nil {
		return notFoundOr(err, "photo")
	}
	switch st {
	case StandingOwner:
	case StandingCollaborator:
		if membership.AddedBy != requester {
			return apierrors.Forbidden("only the owner can remove photos added by others")
		}
	case StandingVisitor:
		return apierrors.Forbidden("you cannot remove photos from this collection")
	}
	if err := s.collections.RemovePhoto(ctx, c.ID, photoID); err != nil {
		return fmt.Errorf("remove photo: %w", err)
	}
	return nil
}
