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
	"gorm.io/gorm"
)

func createWithRole(t *testing.T, db *gorm.DB, name string, role model.Role) *model.User {
	t.Helper()
	u := testutil.CreateUser(t, db, name)
	require.NoError(t, db.Model(u).Update("role", role).Error)
	u.Role = role
	return u
}

func TestAdminRoleRules(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAdminService(db, zap.NewNop())
	ctx := context.Background()
	root := createWithRole(t, db, "root", model.RoleSuperAdmin)
	admin := createWithRole(t, db, "admin", model.RoleAdmin)
	peer := createWithRole(t, db, "peer", model.RoleAdmin)
	user := testutil.CreateUser(t, db, "user")

	_, _, err := svc.ListUsers(ctx, user.ID, "", Page{})
	assert.ErrorIs(t, err, apierrors.ErrAuthorizationDenied)
	users, total, err := svc.ListUsers(ctx, admin.ID, "", Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, users, 4)

	_, err = svc.SetRole(ctx, admin.ID, user.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, apierrors.ErrAuthorizationDenied)
	_, err = svc.SetRole(ctx, admin.ID, peer.ID, model.RolePhotographer)
	assert.ErrorIs(t, err, apierrors.ErrAuthorizationDenied)
	_, err = svc.SetRole(ctx, root.ID, user.ID, model.RoleSuperAdmin)
	assert.ErrorIs(t, err, apierrors.ErrValidationFailed)
	_, err = svc.SetRole(ctx, admin.ID, root.ID, model.RoleCompany)
	assert.ErrorIs(t, err, apierrors.ErrAuthorizationDenied)

	got, err := svc.SetRole(ctx, admin.ID, user.ID, model.RoleCompany)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCompany, got.Role)
	got, err = svc.SetRole(ctx, root.ID, user.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, peer.ID), apierrors.ErrAuthorizationDenied)
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, root.ID), apierrors.ErrAuthorizationDenied)
	assert.ErrorIs(t, svc.DeleteUser(ctx, root.ID, root.ID), apierrors.ErrValidationFailed)
	require.NoError(t, svc.DeleteUser(ctx, root.ID, peer.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, root.ID, peer.ID), apierrors.ErrNotFound)
}

func TestAdminDeleteUserCascadesAndStats(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAdminService(db, zap.NewNop())
	ctx := context.Background()
	admin := createWithRole(t, db, "admin", model.RoleAdmin)
	victim := testutil.CreateUser(t, db, "victim")
	testutil.CreatePhoto(t, db, victim.ID, model.PhotoLive)
	testutil.CreatePhoto(t, db, admin.ID, model.PhotoDraft)

	stats, err := svc.Stats(ctx, admin.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Users)
	assert.EqualValues(t, 1, stats.LivePhotos)
	assert.EqualValues(t, 1, stats.DraftPhotos)

	require.NoError(t, svc.DeleteUser(ctx, admin.ID, victim.ID))
	stats, err = svc.Stats(ctx, admin.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Users)
	assert.EqualValues(t, 0, stats.LivePhotos)

	_, err = svc.Stats(ctx, victim.ID)
	assert.ErrorIs(t, err, apierrors.ErrAuthenticationRequired)
}
