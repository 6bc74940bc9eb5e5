package service

import (
	"context"
	"fmt"
	"time"

	"Lens_Community/internal/model"
	"Lens_Community/internal/pkg"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"

	"go.uber.org/zap"
)

const otpValidity = 24 * time.Hour

// invite issues one pending invitation per email. With skipExisting, emails
// already pending or accepted on the collection are left untouched.
func (s *CollectionService) invite(ctx context.Context, c *model.Collection, inviter *model.User, emails []string, skipExisting bool) ([]model.CollectionCollaborator, error) {
	existing := map[string]bool{}
	if skipExisting {
		var err error
		if existing, err = s.collaborators.ExistingEmails(ctx, c.ID); err != nil {
			return nil, fmt.Errorf("load collaborators: %w", err)
		}
	}
	seen := map[string]bool{}
	var created []model.CollectionCollaborator
	for _, raw := range emails {
		email := normalizeEmail(raw)
		if email == "" || seen[email] || existing[email] {
			continue
		}
		seen[email] = true

		row, err := s.issue(ctx, c, inviter, email)
		if err != nil {
			return created, err
		}
		created = append(created, *row)
	}
	return created, nil
}

func (s *CollectionService) issue(ctx context.Context, c *model.Collection, inviter *model.User, email string) (*model.CollectionCollaborator, error) {
	code, err := pkg.NewOTP()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	now := s.now()
	row := &model.CollectionCollaborator{
		CollectionID: c.ID,
		Email:        email,
		Role:         model.CollaboratorRoleEditor,
		Status:       model.CollaboratorPending,
		OTPCode:      code,
		OTPExpiresAt: now.Add(otpValidity),
		InvitedBy:    inviter.ID,
		InvitedAt:    now,
	}
	target, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		row.UserID = ptr(target.ID)
	case !mysql.IsNotFound(err):
		return nil, fmt.Errorf("lookup invitee: %w", err)
	}
	if err := s.collaborators.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	invitationsTotal.Inc()
	s.sendInvitation(c, inviter, row)
	return row, nil
}

// sendInvitation 邮件发送失败只记录日志，不回滚邀请
func (s *CollectionService) sendInvitation(c *model.Collection, inviter *model.User, row *model.CollectionCollaborator) {
	inv := pkg.Invitation{
		CollectionTitle:   c.Title,
		InviterName:       inviter.DisplayName,
		Code:              row.OTPCode,
		NeedsRegistration: row.UserID == nil,
		JoinURL:           fmt.Sprintf("%s/collections/%s/join", s.publicURL, c.PublicID),
		ValidHours:        int(otpValidity / time.Hour),
	}
	if inv.InviterName == "" {
		inv.InviterName = inviter.Username
	}
	if err := s.mailer.Send(row.Email, pkg.InvitationSubject(inv), pkg.InvitationHTML(inv)); err != nil {
		s.log.Warn("send invitation mail",
			zap.Uint64("collection_id", c.ID),
			zap.String("email", row.Email),
			zap.Error(err))
	}
}

// InviteCollaborators is the explicit invite endpoint; it also works on private collections.
func (s *CollectionService) InviteCollaborators(ctx context.Context, identifier string, requester uint64, emails []string) ([]model.CollectionCollaborator, error) {
	c, err := s.loadOwned(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	if !c.IsCollaborative {
		return nil, apierrors.Forbidden("collection is not collaborative")
	}
	if len(emails) == 0 {
		return nil, apierrors.Validation("emails is required")
	}
	owner, err := s.users.FindByID(ctx, requester)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return s.invite(ctx, c, owner, emails, true)
}

// ResendInvitation 重新生成验证码并重置 24 小时有效期，旧验证码随即失效
func (s *CollectionService) ResendInvitation(ctx context.Context, identifier string, requester, collaboratorID uint64) error {
	c, err := s.loadOwned(ctx, identifier, requester)
	if err != nil {
		return err
	}
	row, err := s.collaborators.FindByID(ctx, c.ID, collaboratorID)
	if err != nil {
		return notFoundOr(err, "invitation")
	}
	if row.IsAccepted() {
		return apierrors.ErrNotFound.WithMessage("invitation already accepted")
	}
	code, err := pkg.NewOTP()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	expiresAt := s.now().Add(otpValidity)
	ok, err := s.collaborators.UpdateCode(ctx, row.ID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	if !ok {
		return apierrors.ErrNotFound.WithMessage("invitation already accepted")
	}
	row.OTPCode, row.OTPExpiresAt = code, expiresAt

	inviter, err := s.users.FindByID(ctx, requester)
	if err != nil {
		return notFoundOr(err, "user")
	}
	invitationsTotal.Inc()
	s.sendInvitation(c, inviter, row)
	return nil
}

// AcceptInvitation checks, in order: collaborative flag, private-collection
// ownership, pending code, expiry, targeted user. The first failure wins.
func (s *CollectionService) AcceptInvitation(ctx context.Context, identifier string, requester uint64, code string) (*model.CollectionCollaborator, error) {
	row, err := s.accept(ctx, identifier, requester, code)
	if err != nil {
		joinsTotal.WithLabelValues(joinOutcome(err)).Inc()
		return nil, err
	}
	joinsTotal.WithLabelValues("accepted").Inc()
	return row, nil
}

func (s *CollectionService) accept(ctx context.Context, identifier string, requester uint64, code string) (*model.CollectionCollaborator, error) {
	if requester == 0 {
		return nil, apierrors.ErrAuthenticationRequired
	}
	c, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !c.IsCollaborative {
		return nil, apierrors.Forbidden("collection is not collaborative")
	}
	if c.IsPrivate && c.UserID != requester {
		return nil, apierrors.Forbidden("this collection is private")
	}
	row, err := s.collaborators.FindPendingByCode(ctx, c.ID, code)
	if err != nil {
		if mysql.IsNotFound(err) {
			return nil, apierrors.ErrInvalidCode
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	now := s.now()
	if !row.OTPExpiresAt.After(now) {
		return nil, apierrors.ErrExpired
	}
	if row.UserID != nil && *row.UserID != requester {
		return nil, apierrors.Forbidden("invitation is for another user")
	}
	if _, err := s.collaborators.FindAccepted(ctx, c.ID, requester); err == nil {
		return nil, apierrors.ErrConflict.WithMessage("already a collaborator")
	} else if !mysql.IsNotFound(err) {
		return nil, fmt.Errorf("load standing: %w", err)
	}

	ok, err := s.collaborators.Accept(ctx, row.ID, requester, c.ID, now)
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	if !ok {
		// 并发请求已先一步消费了该邀请
		return nil, apierrors.ErrInvalidCode
	}
	row.Status = model.CollaboratorAccepted
	row.UserID = ptr(requester)
	row.RespondedAt = ptr(now)

	if c.UserID != requester {
		s.notifier.Notify(c.UserID, model.NotifyCollaboratorJoin,
			fmt.Sprintf("%s joined your collection \"%s\"", s.nameOf(ctx, requester), c.Title),
			ptr(c.ID), fmt.Sprintf("/collections/%s", c.PublicID))
	}
	s.log.Info("invitation accepted",
		zap.Uint64("collection_id", c.ID),
		zap.Uint64("collaborator_id", row.ID),
		zap.Uint64("user_id", requester))
	return row, nil
}

func joinOutcome(err error) string {
	apiErr, ok := apierrors.AsAPIError(err)
	if !ok {
		return "error"
	}
	return apiErr.Code
}

// ListCollaborators is open to the owner and to every accepted collaborator.
func (s *CollectionService) ListCollaborators(ctx context.Context, identifier string, requester uint64) ([]mysql.CollaboratorView, error) {
	c, st, err := s.load(ctx, identifier, requester)
	if err != nil {
		return nil, err
	}
	if st == StandingVisitor {
		return nil, apierrors.Forbidden("only the owner and collaborators can list collaborators")
	}
	list, err := s.collaborators.List(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	return list, nil
}

func (s *CollectionService) RemoveCollaborator(ctx context.Context, identifier string, requester, collaboratorID uint64) error {
	c, err := s.loadOwned(ctx, identifier, requester)
	if err != nil {
		return err
	}
	ok, err := s.collaborators.Delete(ctx, c.ID, collaboratorID)
	if err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	if !ok {
		return apierrors.NotFound("collaborator")
	}
	return nil
}

// LeaveCollection 已接受的协作者退出收藏集
func (s *CollectionService) LeaveCollection(ctx context.Context, identifier string, requester uint64) error {
	c, err := s.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	ok, err := s.collaborators.DeleteAccepted(ctx, c.ID, requester)
	if err != nil {
		return fmt.Errorf("leave collection: %w", err)
	}
	if !ok {
		return apierrors.NotFound("collaborator")
	}
	return nil
}
