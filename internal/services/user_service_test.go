package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newTestDB(t))

	user, err := svc.CreateUser(ctx, "  Traveler@Example.com ", "Kim", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "traveler@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, "Kim", got.Name)

	byEmail, err := svc.GetUserByEmail(ctx, "TRAVELER@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Empty(t, byEmail.PasswordHash)
}

func TestCreateUser_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newTestDB(t))

	tests := []struct {
		name                  string
		email, user, password string
	}{
		{"missing email", "", "Kim", "password123"},
		{"missing name", "a@example.com", " ", "password123"},
		{"missing password", "a@example.com", "Kim", ""},
		{"bad email", "not-an-email", "Kim", "password123"},
		{"short password", "a@example.com", "Kim", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.email, tt.user, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newTestDB(t))

	_, err := svc.CreateUser(ctx, "dup@example.com", "One", "password123")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "DUP@example.com", "Two", "password456")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAuthenticateUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newTestDB(t))

	created, err := svc.CreateUser(ctx, "login@example.com", "Lee", "password123")
	require.NoError(t, err)

	user, err := svc.AuthenticateUser(ctx, "login@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.AuthenticateUser(ctx, "login@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUserAndPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newTestDB(t))

	created, err := svc.CreateUser(ctx, "update@example.com", "Park", "password123")
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, created.ID, "Park Jisoo")
	require.NoError(t, err)
	assert.Equal(t, "Park Jisoo", updated.Name)

	_, err = svc.UpdateUser(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.UpdatePassword(ctx, created.ID, "wrong-password", "newpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.UpdatePassword(ctx, created.ID, "password123", "newpassword1"))
	_, err = svc.AuthenticateUser(ctx, "update@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestGetUser_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newTestDB(t))

	_, err := svc.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newTestDB(t))

	created, err := svc.CreateUser(ctx, "gone@example.com", "Gone", "password123")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, created.ID))

	_, err = svc.GetUserByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.DeleteUser(ctx, created.ID), ErrNotFound)
}
