package mysql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"Lens_Community/internal/model"
	"Lens_Community/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPhotoLikeToggleTwiceRestoresState(t *testing.T) {
	db := testutil.NewDB(t)
	likes := &PhotoLikeRepository{DB: db}
	photos := &PhotoRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	fan := testutil.CreateUser(t, db, "fan")
	p := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)

	liked, err := likes.ToggleLike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	n, err := likes.GetLikeCount(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	liked, err = likes.ToggleLike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err := photos.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Likes)
	isLiked, err := likes.IsLiked(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, isLiked)
}

func TestPhotoSaveToggle(t *testing.T) {
	db := testutil.NewDB(t)
	likes := &PhotoLikeRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)

	saved, err := likes.ToggleSave(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	list, err := likes.SavedPhotos(ctx, owner.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	saved, err = likes.ToggleSave(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestPublishOnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	photos := &PhotoRepository{DB: db}
	users := &UserRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	other := testutil.CreateUser(t, db, "other")
	p := testutil.CreatePhoto(t, db, owner.ID, model.PhotoDraft)

	changed, err := photos.Publish(ctx, p.ID, other.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = photos.Publish(ctx, p.ID, owner.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = photos.Publish(ctx, p.ID, owner.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	u, err := users.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, u.UploadCount)

	got, err := photos.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhotoLive, got.Status)
	assert.NotNil(t, got.PublishedAt)
}

func TestPhotoListFiltersAndTags(t *testing.T) {
	db := testutil.NewDB(t)
	photos := &PhotoRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	live := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	testutil.CreatePhoto(t, db, owner.ID, model.PhotoDraft)

	tags, err := photos.FindOrCreateTags(ctx, []string{"Night", "night ", "city", ""})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.NoError(t, photos.UpdateMeta(ctx, live, map[string]any{"title": "neon"}, tags))

	again, err := photos.FindOrCreateTags(ctx, []string{"night"})
	require.NoError(t, err)
	assert.Equal(t, tags[0].ID, again[0].ID)

	list, err := photos.List(ctx, PhotoFilter{}, SortNewest, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = photos.List(ctx, PhotoFilter{OwnerID: owner.ID, IncludeDraft: true}, SortNewest, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = photos.List(ctx, PhotoFilter{Tag: "NIGHT"}, SortPopular, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Tags, 2)

	list, err = photos.List(ctx, PhotoFilter{Query: "neo"}, SortMostViewed, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPhotoDeleteRemovesJoinRows(t *testing.T) {
	db := testutil.NewDB(t)
	photos := &PhotoRepository{DB: db}
	likes := &PhotoLikeRepository{DB: db}
	collections := &CollectionRepository{DB: db}
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreatePhoto(t, db, owner.ID, model.PhotoLive)
	c := newCollection(t, collections, owner.ID, false)
	require.NoError(t, collections.AddPhotos(ctx, c.ID, owner.ID, []uint64{p.ID}))
	require.NoError(t, collections.UpdateWithPhotos(ctx, c.ID, map[string]any{"cover_photo_id": p.ID}, 0, nil))
	_, err := likes.ToggleLike(ctx, owner.ID, p.ID)
	require.NoError(t, err)

	require.NoError(t, photos.Delete(ctx, p.ID))

	_, err = photos.FindByID(ctx, p.ID)
	assert.True(t, IsNotFound(err))
	got, err := collections.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CoverPhotoID)
	var n int64
	require.NoError(t, db.Model(&model.PhotoLike{}).Count(&n).Error)
	assert.Zero(t, n)
}

// The view/download counters must stay a single `col = col + 1` statement
// with no surrounding transaction.
func TestIncrementCounterStatement(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `photos` SET `views`=views + 1 WHERE id = ?")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PhotoRepository{DB: db}
	require.NoError(t, repo.IncrementCounter(context.Background(), 7, "views"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
