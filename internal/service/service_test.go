package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
	"userinfo-api/internal/repository/sqlite"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	store := sqlite.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func newServices(t *testing.T, store repository.Store) (UserService, ProfileService) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	users := &userService{store: store, cost: bcrypt.MinCost, logger: logger}
	return users, NewProfileService(store, logger)
}

func kim() SignUpInput {
	return SignUpInput{
		Email:        "a@x.com",
		Password:     "pw",
		Name:         "Kim",
		Age:          20,
		Gender:       "male",
		ProfileImage: "u",
	}
}

func ptr[T any](v T) *T { return &v }

func countRows(t *testing.T, store repository.Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSignUp_CreatesUserAndProfile(t *testing.T) {
	store := newTestStore(t)
	users, profiles := newServices(t, store)
	ctx := context.Background()

	user, err := users.SignUp(ctx, kim())
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Empty(t, user.PasswordHash)

	got, err := profiles.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "Kim", got.Profile.Name)
	assert.Equal(t, 20, got.Profile.Age)
	assert.Equal(t, domain.GenderMale, got.Profile.Gender)
	assert.Equal(t, "u", got.Profile.ProfileImage)

	stored, err := store.Users(store.DB()).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw")))
}

func TestSignUp_DefaultCost(t *testing.T) {
	svc := NewUserService(nil, nil).(*userService)
	assert.Equal(t, 10, svc.cost)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	users, _ := newServices(t, store)
	ctx := context.Background()

	_, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	in := kim()
	in.Email = "  A@X.com "
	_, err = users.SignUp(ctx, in)
	assert.True(t, errors.Is(err, ErrEmailTaken))
	assert.Equal(t, 1, countRows(t, store, "users"))
	assert.Equal(t, 1, countRows(t, store, "user_infos"))
}

func TestSignUp_Validation(t *testing.T) {
	store := newTestStore(t)
	users, _ := newServices(t, store)

	tests := []struct {
		name   string
		mutate func(*SignUpInput)
		want   error
	}{
		{"missing email", func(in *SignUpInput) { in.Email = " " }, ErrEmailRequired},
		{"missing password", func(in *SignUpInput) { in.Password = "" }, ErrPasswordRequired},
		{"bad gender", func(in *SignUpInput) { in.Gender = "other" }, domain.ErrInvalidGender},
		{"negative age", func(in *SignUpInput) { in.Age = -1 }, domain.ErrInvalidAge},
		{"age beyond int32", func(in *SignUpInput) { in.Age = 1 << 31 }, domain.ErrInvalidAge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := kim()
			tt.mutate(&in)
			_, err := users.SignUp(context.Background(), in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Equal(t, 0, countRows(t, store, "users"))
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(t)
	users, _ := newServices(t, store)
	ctx := context.Background()

	created, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	user, err := users.Authenticate(ctx, "A@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, err = users.Authenticate(ctx, "a@x.com", "wrong")
	assert.True(t, errors.Is(err, ErrPasswordMismatch))

	_, err = users.Authenticate(ctx, "b@x.com", "pw")
	assert.True(t, errors.Is(err, ErrUnknownEmail))

	_, err = users.Authenticate(ctx, "", "pw")
	assert.True(t, errors.Is(err, ErrEmailRequired))
}

func TestUpdateProfile_SingleField(t *testing.T) {
	store := newTestStore(t)
	users, profiles := newServices(t, store)
	ctx := context.Background()

	user, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	changes, err := profiles.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{Age: ptr(21)})
	require.NoError(t, err)
	require.Len(t, changes, 1)

	history, err := profiles.ListHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.FieldAge, history[0].ChangedField)
	assert.Equal(t, "20", history[0].OldValue)
	assert.Equal(t, "21", history[0].NewValue)

	got, err := profiles.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 21, got.Profile.Age)
	assert.Equal(t, "Kim", got.Profile.Name)
}

func TestUpdateProfile_NoChange(t *testing.T) {
	store := newTestStore(t)
	users, profiles := newServices(t, store)
	ctx := context.Background()

	user, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	g := domain.Gender("male")
	changes, err := profiles.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{
		Name:   ptr("Kim"),
		Age:    ptr(20),
		Gender: &g,
	})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, 0, countRows(t, store, "user_histories"))

	changes, err = profiles.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestUpdateProfile_MultipleFieldsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	users, profiles := newServices(t, store)
	ctx := context.Background()

	user, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	g := domain.Gender("Female")
	_, err = profiles.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{
		Name:         ptr("Lee"),
		Gender:       &g,
		ProfileImage: ptr("u2"),
	})
	require.NoError(t, err)

	got, err := profiles.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenderFemale, got.Profile.Gender)

	history, err := profiles.ListHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.FieldProfileImage, history[0].ChangedField)
	assert.Equal(t, domain.FieldGender, history[1].ChangedField)
	assert.Equal(t, "MALE", history[1].OldValue)
	assert.Equal(t, "FEMALE", history[1].NewValue)
	assert.Equal(t, domain.FieldName, history[2].ChangedField)
}

func TestUpdateProfile_InvalidGender(t *testing.T) {
	store := newTestStore(t)
	users, profiles := newServices(t, store)
	ctx := context.Background()

	user, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	g := domain.Gender("robot")
	_, err = profiles.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{Gender: &g})
	assert.True(t, errors.Is(err, domain.ErrInvalidGender))
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	store := newTestStore(t)
	_, profiles := newServices(t, store)

	_, err := profiles.UpdateProfile(context.Background(), 99, domain.ProfileUpdate{Age: ptr(1)})
	assert.True(t, errors.Is(err, ErrProfileNotFound))

	_, err = profiles.GetProfile(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrProfileNotFound))
}

type failingHistories struct{}

func (failingHistories) Append(context.Context, *domain.HistoryEntry) error {
	return errors.New("disk full")
}

func (failingHistories) ListByUser(context.Context, int64) ([]domain.HistoryEntry, error) {
	return nil, nil
}

type brokenHistoryStore struct {
	repository.Store
}

func (brokenHistoryStore) Histories(repository.DBTX) repository.HistoryRepository {
	return failingHistories{}
}

func TestUpdateProfile_RollsBackOnHistoryFailure(t *testing.T) {
	store := newTestStore(t)
	users, _ := newServices(t, store)
	ctx := context.Background()

	user, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	profiles := NewProfileService(brokenHistoryStore{store}, logger)
	_, err = profiles.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{Age: ptr(30)})
	require.Error(t, err)

	got, err := NewProfileService(store, logger).GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Profile.Age)
	assert.Equal(t, 0, countRows(t, store, "user_histories"))
}

// blindUsers never finds an existing email, so the pre-check always passes
// and the unique constraint on insert is the only guard left.
type blindUsers struct {
	repository.UserRepository
}

func (blindUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

type racingStore struct {
	repository.Store
}

func (s racingStore) Users(db repository.DBTX) repository.UserRepository {
	return blindUsers{s.Store.Users(db)}
}

func TestSignUp_DuplicateInsertIsConflict(t *testing.T) {
	store := newTestStore(t)
	users, _ := newServices(t, racingStore{store})
	ctx := context.Background()

	_, err := users.SignUp(ctx, kim())
	require.NoError(t, err)

	_, err = users.SignUp(ctx, kim())
	assert.True(t, errors.Is(err, ErrEmailTaken), "got %v", err)
	assert.Equal(t, 1, countRows(t, store, "users"))
	assert.Equal(t, 1, countRows(t, store, "user_infos"))
}
