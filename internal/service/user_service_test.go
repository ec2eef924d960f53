package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-library-api/internal/dto"
	"github.com/noah-isme/sma-library-api/internal/models"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

func newTestUserService(repo *fakeUserRepo) *UserService {
	return NewUserService(repo, testValidator(), nil, nil, nil).WithBcryptCost(bcrypt.MinCost)
}

func seededTeacher(repo *fakeUserRepo) models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("original-pass"), bcrypt.MinCost)
	u := models.User{
		ID:           "teacher-1",
		Username:     "budi",
		Email:        "budi@sman1.sch.id",
		PasswordHash: string(hash),
		UserType:     models.UserTypeTeacher,
		IsActive:     true,
		LastLogin:    &fixedNow,
	}
	repo.seed(u)
	return u
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	user, err := svc.Create(context.Background(), staff, dto.UserInput{
		Username: "  siti ",
		Email:    "siti@sman1.sch.id",
		Password: "rahasia-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "siti", user.Username)
	assert.Equal(t, models.UserTypeStaff, user.UserType)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "rahasia-123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("rahasia-123")))
}

func TestUserServiceCreateRequiresPassword(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo())

	_, err := svc.Create(context.Background(), staff, dto.UserInput{Username: "siti", Email: "siti@sman1.sch.id"})
	appErr := requireAppError(t, err, appErrors.ErrValidation.Code)
	fields, ok := appErr.Details.([]appErrors.FieldError)
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "password", fields[0].Field)
}

func TestUserServiceCreateDeniedForTeacher(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	_, err := svc.Create(context.Background(), teacher, dto.UserInput{Username: "x", Email: "x@y.id", Password: "12345678"})
	appErr := requireAppError(t, err, appErrors.ErrAccessDenied.Code)
	assert.Equal(t, 403, appErr.Status)
	assert.Zero(t, repo.creates)
}

func TestUserServiceSelfAccess(t *testing.T) {
	repo := newFakeUserRepo()
	seededTeacher(repo)
	repo.seed(models.User{ID: "other-1", Username: "ani", Email: "ani@sman1.sch.id", UserType: models.UserTypeTeacher, IsActive: true})
	svc := newTestUserService(repo)

	got, err := svc.Get(context.Background(), teacher, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "budi", got.Username)

	_, err = svc.Get(context.Background(), teacher, "other-1")
	requireAppError(t, err, appErrors.ErrAccessDenied.Code)

	err = svc.Delete(context.Background(), teacher, "other-1")
	requireAppError(t, err, appErrors.ErrAccessDenied.Code)

	_, err = svc.Get(context.Background(), staff, "other-1")
	assert.NoError(t, err)
}

func TestUserServiceUpdateKeepsPasswordHash(t *testing.T) {
	repo := newFakeUserRepo()
	original := seededTeacher(repo)
	svc := newTestUserService(repo)

	name := "Budi"
	updated, err := svc.Update(context.Background(), teacher, "teacher-1", dto.UserPatch{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Budi", updated.FirstName)
	assert.Equal(t, original.PasswordHash, updated.PasswordHash)
	assert.Equal(t, original.LastLogin, updated.LastLogin)
}

func TestUserServiceUpdateRehashesNewPassword(t *testing.T) {
	repo := newFakeUserRepo()
	original := seededTeacher(repo)
	svc := newTestUserService(repo)

	password := "ganti-sandi-1"
	updated, err := svc.Update(context.Background(), teacher, "teacher-1", dto.UserPatch{Password: &password})
	require.NoError(t, err)
	assert.NotEqual(t, original.PasswordHash, updated.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(password)))
}

func TestUserServiceUpdateBlocksSelfEscalation(t *testing.T) {
	repo := newFakeUserRepo()
	seededTeacher(repo)
	svc := newTestUserService(repo)

	admin := string(models.UserTypeAdmin)
	_, err := svc.Update(context.Background(), teacher, "teacher-1", dto.UserPatch{UserType: &admin})
	requireAppError(t, err, appErrors.ErrAccessDenied.Code)

	stored, err := repo.FindByID(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeTeacher, stored.UserType)

	updated, err := svc.Update(context.Background(), staff, "teacher-1", dto.UserPatch{UserType: &admin})
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeAdmin, updated.UserType)
}

func TestUserServiceUpdateDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	seededTeacher(repo)
	repo.seed(models.User{ID: "other-1", Username: "ani", Email: "ani@sman1.sch.id", UserType: models.UserTypeTeacher, IsActive: true})
	svc := newTestUserService(repo)

	email := "ani@sman1.sch.id"
	_, err := svc.Update(context.Background(), teacher, "teacher-1", dto.UserPatch{Email: &email})
	appErr := requireAppError(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, appErrors.ConflictDetail{Field: "email", Value: email}, appErr.Details)
}
