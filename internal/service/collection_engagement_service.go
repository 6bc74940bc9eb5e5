package service

import (
	"context"
	"fmt"
	"strings"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"
)

const maxCommentLength = 2000

// ToggleLike returns the new state and the like count read back after the toggle.
func (s *CollectionService) ToggleLike(ctx context.Context, identifier string, requester uint64) (bool, int64, error) {
	c, _, err := s.loadViewable(ctx, identifier, requester)
	if err != nil {
		return false, 0, err
	}
	if requester == 0 {
		return false, 0, apierrors.ErrAuthenticationRequired
	}
	liked, err := s.engagement.ToggleCollectionLike(ctx, requester, c.ID)
	if err != nil {
		return false, 0, fmt.Errorf("toggle collection like: %w", err)
	}
	if liked && c.UserID != requester {
		s.notifier.Notify(c.UserID, model.NotifyCollectionLike,
			fmt.Sprintf("%s liked your collection \"%s\"", s.nameOf(ctx, requester), c.Title),
			ptr(c.ID), fmt.Sprintf("/collections/%s", c.PublicID))
	}
	summary, err := s.collections.Summary(ctx, c.ID)
	if err != nil {
		return liked, 0, notFoundOr(err, "collection")
	}
	return liked, summary.LikeCount, nil
}

// RecordView 匿名访问也记录，requester 为 0 时 user_id 为空
func (s *CollectionService) RecordView(ctx context.Context, identifier string, requester uint64) error {
	c, _, err := s.loadViewable(ctx, identifier, requester)
	if err != nil {
		return err
	}
	var viewer *uint64
	if requester != 0 {
		viewer = ptr(requester)
	}
	if err := s.engagement.RecordView(ctx, c.ID, viewer); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

func (s *CollectionService) AddComment(ctx context.Context, identifier string, requester uint64, content string, parentID *uint64) (*model.CollectionComment, error) {
	c, _, err := s.loadViewable(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	if requester == 0 {
		return nil, apierrors.ErrAuthenticationRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierrors.Validation("content is required")
	}
	if len([]rune(content)) > maxCommentLength {
		return nil, apierrors.Validation(fmt.Sprintf("content must be at most %d characters", maxCommentLength))
	}

	var parent *model.CollectionComment
	if parentID != nil {
		parent, err = s.engagement.FindComment(ctx, c.ID, *parentID)
		if err != nil {
			if mysql.IsNotFound(err) {
				return nil, apierrors.Validation("parent comment not found in this collection")
			}
			return nil, fmt.Errorf("load parent comment: %w", err)
		}
		// 只支持一层回复
		if parent.ParentID != nil {
			return nil, apierrors.Validation("cannot reply to a reply")
		}
	}

	comment := &model.CollectionComment{
		CollectionID: c.ID,
		UserID:       requester,
		ParentID:     parentID,
		Content:      content,
	}
	if err := s.engagement.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	name := s.nameOf(ctx, requester)
	url := fmt.Sprintf("/collections/%s#comment-%d", c.PublicID, comment.ID)
	if c.UserID != requester {
		s.notifier.Notify(c.UserID, model.NotifyComment,
			fmt.Sprintf("%s commented on your collection \"%s\"", name, c.Title),
			ptr(c.ID), url)
	}
	if parent != nil && parent.UserID != requester && parent.UserID != c.UserID {
		s.notifier.Notify(parent.UserID, model.NotifyCommentReply,
			fmt.Sprintf("%s replied to your comment", name),
			ptr(comment.ID), url)
	}
	return comment, nil
}

// ListComments lists top-level comments, or the replies of parentID when it is non-zero.
func (s *CollectionService) ListComments(ctx context.Context, identifier string, requester, parentID uint64, page Page) ([]mysql.CommentView, error) {
	c, _, err := s.loadViewable(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	list, err := s.engagement.ListComments(ctx, c.ID, parentID, page.Offset(), page.Limit())
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if requester == 0 || len(list) == 0 {
		return list, nil
	}
	ids := make([]uint64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	liked, err := s.engagement.LikedComments(ctx, requester, ids)
	if err != nil {
		return nil, fmt.Errorf("load comment likes: %w", err)
	}
	for i := range list {
		list[i].Liked = liked[list[i].ID]
	}
	return list, nil
}

// DeleteComment 评论作者或收藏集所有者可删除，回复一并删除
func (s *CollectionService) DeleteComment(ctx context.Context, identifier string, requester, commentID uint64) error {
	c, err := s.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	comment, err := s.engagement.FindComment(ctx, c.ID, commentID)
	if err != nil {
		return notFoundOr(err, "comment")
	}
	if comment.UserID != requester && c.UserID != requester {
		return apierrors.Forbidden("only the author or the collection owner can delete this comment")
	}
	if err := s.engagement.DeleteComment(ctx, comment.ID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *CollectionService) ToggleCommentLike(ctx context.Context, identifier string, requester, commentID uint64) (bool, error) {
	c, _, err := s.loadViewable(ctx, identifier, requester)
	if err != nil {
		return false, err
	}
	if requester == 0 {
		return false, apierrors.ErrAuthenticationRequired
	}
	if _, err := s.engagement.FindComment(ctx, c.ID, commentID); err != nil {
		return false, notFoundOr(err, "comment")
	}
	liked, err := s.engagement.ToggleCommentLike(ctx, requester, commentID)
	if err != nil {
		return false, fmt.Errorf("toggle comment like: %w", err)
	}
	return liked, nil
}

func (s *CollectionService) nameOf(ctx context.Context, userID uint64) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "someone"
	}
	return u.Username
}
