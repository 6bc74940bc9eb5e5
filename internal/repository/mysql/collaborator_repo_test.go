package mysql

import (
	"context"
	"testing"
	"time"

	"Lens_Community/internal/model"
	"Lens_Community/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invite(t *testing.T, repo *CollaboratorRepository, collectionID, inviter uint64, email, code string) *model.CollectionCollaborator {
	t.Helper()
	now := time.Now()
	c := &model.CollectionCollaborator{
		CollectionID: collectionID,
		Email:        email,
		Role:         model.CollaboratorRoleEditor,
		Status:       model.CollaboratorPending,
		OTPCode:      code,
		OTPExpiresAt: now.Add(24 * time.Hour),
		InvitedBy:    inviter,
		InvitedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestAcceptIsCompareAndSwap(t *testing.T) {
	db := testutil.NewDB(t)
	collections := &CollectionRepository{DB: db}
	repo := &CollaboratorRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	c := newCollection(t, collections, owner.ID, false)
	row := invite(t, repo, c.ID, owner.ID, "a@example.com", "111111")

	ok, err := repo.Accept(ctx, row.ID, a.ID, c.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Accept(ctx, row.ID, b.ID, c.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second accept must lose")

	got, err := repo.FindAccepted(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CollaboratorAccepted, got.Status)
	require.NotNil(t, got.RespondedAt)

	_, err = repo.FindAccepted(ctx, c.ID, b.ID)
	assert.True(t, IsNotFound(err))

	var events int64
	require.NoError(t, db.Model(&model.ActivityOutbox{}).Where("event_type = ?", model.EventCollectionJoin).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestPendingCodeLookupAndResend(t *testing.T) {
	db := testutil.NewDB(t)
	collections := &CollectionRepository{DB: db}
	repo := &CollaboratorRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	c := newCollection(t, collections, owner.ID, false)
	row := invite(t, repo, c.ID, owner.ID, "x@example.com", "222222")

	found, err := repo.FindPendingByCode(ctx, c.ID, "222222")
	require.NoError(t, err)
	assert.Equal(t, row.ID, found.ID)

	expires := time.Now().Add(24 * time.Hour)
	ok, err := repo.UpdateCode(ctx, row.ID, "333333", expires)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.FindPendingByCode(ctx, c.ID, "222222")
	assert.True(t, IsNotFound(err))
	_, err = repo.FindPendingByCode(ctx, c.ID, "333333")
	assert.NoError(t, err)
}

func TestExistingEmailsAndList(t *testing.T) {
	db := testutil.NewDB(t)
	collections := &CollectionRepository{DB: db}
	repo := &CollaboratorRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	a := testutil.CreateUser(t, db, "a")
	c := newCollection(t, collections, owner.ID, false)
	row := invite(t, repo, c.ID, owner.ID, "a@example.com", "111111")
	invite(t, repo, c.ID, owner.ID, "new@example.com", "444444")
	_, err := repo.Accept(ctx, row.ID, a.ID, c.ID, time.Now())
	require.NoError(t, err)

	emails, err := repo.ExistingEmails(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, emails["a@example.com"])
	assert.True(t, emails["new@example.com"])
	assert.False(t, emails["other@example.com"])

	list, err := repo.List(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Username)
	assert.Empty(t, list[1].Username)

	left, err := repo.DeleteAccepted(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, left)
	var n int64
	require.NoError(t, db.Model(&model.CollectionCollaborator{}).
		Where("collection_id = ? AND email = ?", c.ID, "a@example.com").
		Count(&n).Error)
	assert.Zero(t, n)
}
