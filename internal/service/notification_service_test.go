package service

import (
	"context"
	"testing"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyIsWrittenInBackground(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewNotificationService(db, zap.NewNop())
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u")
	other := testutil.CreateUser(t, db, "other")

	svc.Notify(u.ID, model.NotifyFollow, "other started following you", ptr(other.ID), "/users/2")
	svc.Notify(u.ID, model.NotifyPhotoLike, "someone liked your photo", nil, "")
	svc.Notify(other.ID, model.NotifyFollow, "u started following you", ptr(u.ID), "")
	svc.Wait()

	list, err := svc.List(ctx, u.ID, false, Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	n, err := svc.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, svc.MarkRead(ctx, u.ID, list[0].ID))
	assert.ErrorIs(t, svc.MarkRead(ctx, other.ID, list[1].ID), apierrors.ErrNotFound)

	unread, err := svc.List(ctx, u.ID, true, Page{})
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	marked, err := svc.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)
	n, err = svc.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotifyFailureDoesNotPanic(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewNotificationService(db, zap.NewNop())
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc.Notify(1, model.NotifyFollow, "lost", nil, "")
	svc.Wait()
}
