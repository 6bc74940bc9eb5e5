package service

import (
	"context"
	"errors"
	"testing"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/testutil"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFollowToggleNotifiesOnFollowOnly(t *testing.T) {
	db := testutil.NewDB(t)
	notifier := &recordingNotifier{}
	svc := NewFollowService(db, notifier)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")

	_, err := svc.Toggle(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, apierrors.ErrValidationFailed)
	_, err = svc.Toggle(ctx, a.ID, 999)
	assert.ErrorIs(t, err, apierrors.ErrNotFound)

	following, err := svc.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)
	following, err = svc.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following)

	got := notifier.For(b.ID)
	require.Len(t, got, 1)
	assert.Equal(t, model.NotifyFollow, got[0].Type)

	ok, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOutboxRelayerMarksFailures(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	c := testutil.CreateUser(t, db, "c")
	follows := NewFollowService(db, &recordingNotifier{})
	_, err := follows.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = follows.Toggle(ctx, c.ID, b.ID)
	require.NoError(t, err)

	var delivered []uint64
	sender := func(_ context.Context, ob *model.ActivityOutbox) error {
		if ob.ActorID == c.ID {
			return errors.New("broker unavailable")
		}
		delivered = append(delivered, ob.ActorID)
		return nil
	}
	relayer := NewOutboxRelayer(db, sender, 10, 0, zap.NewNop())
	assert.Equal(t, 1, relayer.DrainOnce(ctx))
	assert.Equal(t, []uint64{a.ID}, delivered)

	var rows []model.ActivityOutbox
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, model.OutboxSent, rows[0].Status)
	assert.Equal(t, model.OutboxFailed, rows[1].Status)
	assert.Equal(t, 1, rows[1].Retry)

	assert.Equal(t, 0, relayer.DrainOnce(ctx))
}

func TestCounterReconcilerFixesDrift(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	testutil.CreatePhoto(t, db, a.ID, model.PhotoLive)
	require.NoError(t, db.Create(&model.Follow{FollowerID: b.ID, FolloweeID: a.ID}).Error)
	require.NoError(t, db.Model(&model.User{}).Where("1 = 1").
		Updates(map[string]any{"follower_count": 42, "following_count": 42, "upload_count": 42}).Error)

	r := NewCounterReconciler(db, 1, zap.NewNop())
	assert.Equal(t, 2, r.ReconcileOnce(ctx))

	var ua, ub model.User
	require.NoError(t, db.First(&ua, a.ID).Error)
	require.NoError(t, db.First(&ub, b.ID).Error)
	assert.EqualValues(t, 1, ua.FollowerCount)
	assert.EqualValues(t, 0, ua.FollowingCount)
	assert.EqualValues(t, 1, ua.UploadCount)
	assert.EqualValues(t, 1, ub.FollowingCount)

	c := cron.New()
	_, err := r.Schedule(ctx, c, "@every 5m")
	assert.NoError(t, err)
	_, err = r.Schedule(ctx, c, "not a spec")
	assert.Error(t, err)
}
