package services

import (
	"context"
	"fmt"
	"testing"

	"libr-backend/internal/adapters/persistence/models"
	"libr-backend/internal/adapters/persistence/repositories"
	"libr-backend/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *borrowFixture) {
	t.Helper()

	f := newBorrowFixture(t)
	return NewUserService(repositories.NewUserRepository(f.db)), f
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	svc, f := newUserService(t)

	for i := 0; i < 12; i++ {
		f.createUser(t, fmt.Sprintf("member%02d", i), false)
	}

	out, err := svc.ListUsers(ctx, &ListUsersInput{Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, out.Users, 5)
	assert.EqualValues(t, 12, out.Total)
	assert.Equal(t, 3, out.TotalPages)

	out, err = svc.ListUsers(ctx, &ListUsersInput{Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, out.Users, 2)
}

func TestUpdateUserByAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("admin flips subscription flag", func(t *testing.T) {
		svc, f := newUserService(t)
		admin := f.createUser(t, "admin", true)
		member := f.createUser(t, "member", false)

		updated, err := svc.UpdateUserByAdmin(ctx, member.ID, admin.ID, &UpdateUserByAdminInput{
			IsSubscribed: boolPtr(true),
		})
		require.NoError(t, err)
		assert.True(t, updated.IsSubscribed)
	})

	t.Run("admin cannot change own role", func(t *testing.T) {
		svc, f := newUserService(t)
		admin := f.createUser(t, "admin", true)

		_, err := svc.UpdateUserByAdmin(ctx, admin.ID, admin.ID, &UpdateUserByAdminInput{
			Role: strPtr(models.RoleUser),
		})
		assert.ErrorIs(t, err, ErrCannotChangeOwnRole)
	})

	t.Run("email must stay unique", func(t *testing.T) {
		svc, f := newUserService(t)
		admin := f.createUser(t, "admin", true)
		member := f.createUser(t, "member", false)
		f.createUser(t, "taken", false)

		_, err := svc.UpdateUserByAdmin(ctx, member.ID, admin.ID, &UpdateUserByAdminInput{
			Email: strPtr("taken@libr.local"),
		})
		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("role and state are validated", func(t *testing.T) {
		svc, f := newUserService(t)
		admin := f.createUser(t, "admin", true)
		member := f.createUser(t, "member", false)

		_, err := svc.UpdateUserByAdmin(ctx, member.ID, admin.ID, &UpdateUserByAdminInput{
			Role: strPtr("superuser"),
		})
		assert.ErrorIs(t, err, ErrInvalidRole)

		_, err = svc.UpdateUserByAdmin(ctx, member.ID, admin.ID, &UpdateUserByAdminInput{
			State: strPtr("wizard"),
		})
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, f := newUserService(t)
		admin := f.createUser(t, "admin", true)

		_, err := svc.UpdateUserByAdmin(ctx, 999, admin.ID, &UpdateUserByAdminInput{})
		assert.ErrorIs(t, err, ErrUserNotFoundSvc)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, f := newUserService(t)
	admin := f.createUser(t, "admin", true)
	member := f.createUser(t, "member", false)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, admin.ID), ErrCannotDeleteSelf)

	require.NoError(t, svc.DeleteUser(ctx, member.ID, admin.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, member.ID, admin.ID), ErrUserNotFoundSvc)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, f := newUserService(t)
	member := f.createUser(t, "member", false)

	updated, err := svc.UpdateProfile(ctx, member.ID, &UpdateProfileInput{
		FName:   strPtr("Renamed"),
		Address: strPtr("2 Other St"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FName)
	assert.Equal(t, "2 Other St", updated.Address)
	// Untouched fields keep their values
	assert.Equal(t, "Reader", updated.LName)
}

func TestProfileErrorsDistinguishMissingUser(t *testing.T) {
	ctx := context.Background()
	svc, f := newUserService(t)

	_, err := svc.UpdateProfile(ctx, 999, &UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrUserNotFoundSvc)

	err = svc.ChangePassword(ctx, 999, &ChangePasswordInput{
		OldPassword: "whatever",
		NewPassword: "longenough1",
	})
	assert.ErrorIs(t, err, ErrUserNotFoundSvc)

	// A storage failure must not masquerade as a missing user
	require.NoError(t, f.db.Migrator().DropTable(&models.User{}))

	_, err = svc.UpdateProfile(ctx, 999, &UpdateProfileInput{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFoundSvc)

	err = svc.ChangePassword(ctx, 999, &ChangePasswordInput{
		OldPassword: "whatever",
		NewPassword: "longenough1",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFoundSvc)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, f := newUserService(t)

	hashed, err := password.Hash("oldpassword1")
	require.NoError(t, err)
	member := f.createUser(t, "member", false)
	member.Password = hashed
	require.NoError(t, f.db.Save(member).Error)

	t.Run("wrong old password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, member.ID, &ChangePasswordInput{
			OldPassword: "nope",
			NewPassword: "newpassword1",
		})
		assert.ErrorIs(t, err, ErrOldPasswordWrong)
	})

	t.Run("weak new password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, member.ID, &ChangePasswordInput{
			OldPassword: "oldpassword1",
			NewPassword: "short",
		})
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, member.ID, &ChangePasswordInput{
			OldPassword: "oldpassword1",
			NewPassword: "newpassword1",
		}))

		var stored models.User
		require.NoError(t, f.db.First(&stored, member.ID).Error)
		assert.True(t, password.Verify("newpassword1", stored.Password))
	})
}
