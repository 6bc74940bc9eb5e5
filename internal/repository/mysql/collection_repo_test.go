package mysql

import (
	"context"
	"testing"
	"time"

	"Lens_Community/internal/model"
	"Lens_Community/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollection(t *testing.T, repo *CollectionRepository, ownerID uint64, private bool) *model.Collection {
	t.Helper()
	c := &model.Collection{
		PublicID:        uuid.NewString(),
		UserID:          ownerID,
		Title:           "street",
		IsPrivate:       private,
		IsCollaborative: true,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestCollectionPhotosKeepInsertionOrder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := &CollectionRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	p1 := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	p2 := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	p3 := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	c := newCollection(t, repo, owner.ID, false)

	require.NoError(t, repo.AddPhotos(ctx, c.ID, owner.ID, []uint64{p3.ID, p1.ID}))
	require.NoError(t, repo.AddPhotos(ctx, c.ID, owner.ID, []uint64{p1.ID, p2.ID}))

	photos, err := repo.Photos(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, photos, 3)
	assert.Equal(t, []uint64{p3.ID, p1.ID, p2.ID}, []uint64{photos[0].ID, photos[1].ID, photos[2].ID})

	require.NoError(t, repo.UpdateWithPhotos(ctx, c.ID, nil, owner.ID, &[]uint64{p2.ID}))
	photos, err = repo.Photos(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, p2.ID, photos[0].ID)
}

func TestReplacePhotosKeepsOriginalAdder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := &CollectionRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	helper := testutil.CreateUser(t, db, "helper")
	mine := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	theirs := testutil.CreatePhoto(t, db, helper.ID, model.PhotoLive)
	fresh := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	c := newCollection(t, repo, owner.ID, false)

	require.NoError(t, repo.AddPhotos(ctx, c.ID, owner.ID, []uint64{mine.ID}))
	require.NoError(t, repo.AddPhotos(ctx, c.ID, helper.ID, []uint64{theirs.ID}))

	require.NoError(t, repo.UpdateWithPhotos(ctx, c.ID, map[string]any{"title": "renamed"}, owner.ID,
		&[]uint64{fresh.ID, theirs.ID}))

	m, err := repo.Membership(ctx, c.ID, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, helper.ID, m.AddedBy)
	m, err = repo.Membership(ctx, c.ID, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, m.AddedBy)
	_, err = repo.Membership(ctx, c.ID, mine.ID)
	assert.True(t, IsNotFound(err))

	photos, err := repo.Photos(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, []uint64{fresh.ID, theirs.ID}, []uint64{photos[0].ID, photos[1].ID})

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
}

func TestCollectionSummaryAggregatesAtReadTime(t *testing.T) {
	db := testutil.NewDB(t)
	repo := &CollectionRepository{DB: db}
	eng := &EngagementRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	fan := testutil.CreateUser(t, db, "fan")
	p := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	c := newCollection(t, repo, owner.ID, false)

	require.NoError(t, repo.AddPhotos(ctx, c.ID, owner.ID, []uint64{p.ID}))
	_, err := eng.ToggleCollectionLike(ctx, fan.ID, c.ID)
	require.NoError(t, err)
	require.NoError(t, eng.RecordView(ctx, c.ID, nil))
	require.NoError(t, eng.RecordView(ctx, c.ID, &fan.ID))
	require.NoError(t, eng.CreateComment(ctx, &model.CollectionComment{CollectionID: c.ID, UserID: fan.ID, Content: "nice"}))

	s, err := repo.Summary(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.PublicID, s.PublicID)
	assert.EqualValues(t, 1, s.PhotoCount)
	assert.EqualValues(t, 1, s.LikeCount)
	assert.EqualValues(t, 1, s.CommentCount)
	assert.EqualValues(t, 2, s.ViewCount)

	_, err = repo.Summary(ctx, c.ID+100)
	assert.True(t, IsNotFound(err))
}

func TestCollectionListings(t *testing.T) {
	db := testutil.NewDB(t)
	repo := &CollectionRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	other := testutil.CreateUser(t, db, "other")
	public := newCollection(t, repo, owner.ID, false)
	private := newCollection(t, repo, owner.ID, true)
	shared := newCollection(t, repo, other.ID, true)

	require.NoError(t, db.Create(&model.CollectionCollaborator{
		CollectionID: shared.ID, UserID: &owner.ID, Email: owner.Email,
		Role: model.CollaboratorRoleEditor, Status: model.CollaboratorAccepted,
		OTPCode: "123456", OTPExpiresAt: time.Now().Add(time.Hour), InvitedBy: other.ID, InvitedAt: time.Now(),
	}).Error)

	list, err := repo.ListPublic(ctx, 0, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, public.ID, list[0].ID)

	list, err = repo.ListByOwner(ctx, owner.ID, false, 0, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.ListByOwner(ctx, owner.ID, true, 0, 20)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.ListMine(ctx, owner.ID, 0, 20)
	require.NoError(t, err)
	ids := make([]uint64, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []uint64{public.ID, private.ID, shared.ID}, ids)
}

func TestCollectionDeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := &CollectionRepository{DB: db}
	eng := &EngagementRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	fan := testutil.CreateUser(t, db, "fan")
	p := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	c := newCollection(t, repo, owner.ID, false)

	require.NoError(t, repo.AddPhotos(ctx, c.ID, owner.ID, []uint64{p.ID}))
	comment := &model.CollectionComment{CollectionID: c.ID, UserID: fan.ID, Content: "hi"}
	require.NoError(t, eng.CreateComment(ctx, comment))
	_, err := eng.ToggleCommentLike(ctx, owner.ID, comment.ID)
	require.NoError(t, err)
	_, err = eng.ToggleCollectionLike(ctx, fan.ID, c.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, c.ID))

	_, err = repo.FindByPublicID(ctx, c.PublicID)
	assert.True(t, IsNotFound(err))
	for _, m := range []any{&model.CollectionPhoto{}, &model.CollectionComment{}, &model.CollectionLike{}, &model.CommentLike{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
	// 照片本身不受影响
	var photos int64
	require.NoError(t, db.Model(&model.Photo{}).Count(&photos).Error)
	assert.EqualValues(t, 1, photos)
}

func TestRemovePhotoClearsCover(t *testing.T) {
	db := testutil.NewDB(t)
	repo := &CollectionRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	c := newCollection(t, repo, owner.ID, false)
	require.NoError(t, repo.AddPhotos(ctx, c.ID, owner.ID, []uint64{p.ID}))
	require.NoError(t, repo.UpdateWithPhotos(ctx, c.ID, map[string]any{"cover_photo_id": p.ID}, 0, nil))

	require.NoError(t, repo.RemovePhoto(ctx, c.ID, p.ID))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CoverPhotoID)
}
