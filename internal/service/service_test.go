package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/db"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/store"
)

func init() {
	model.PasswordCost = bcrypt.MinCost
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	s := store.NewGormStore(gdb)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae), "expected *apperr.Error, got %v", err)
	return ae.Kind
}

func registerUser(t *testing.T, users *UserService, name string) *model.User {
	t.Helper()
	res, err := users.Register(context.Background(), RegisterInput{
		Username:  name,
		Email:     name + "@cornell.edu",
		Password:  "secret1",
		FirstName: strings.ToUpper(name[:1]) + name[1:],
		LastName:  "Student",
		Year:      model.YearJunior,
	})
	require.NoError(t, err)
	u, err := users.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	return u
}

func TestUserService_Register(t *testing.T) {
	s := newTestStore(t)
	users := NewUserService(s, auth.NewTokenManager("secret", time.Hour))
	ctx := context.Background()

	res, err := users.Register(ctx, RegisterInput{
		Username:  "alice_1",
		Email:     " Alice@Cornell.edu ",
		Password:  "secret1",
		FirstName: " Alice ",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", res.Message)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, model.RoleStudent, res.User.Role)
	assert.Equal(t, "alice@cornell.edu", res.User.Email)
	assert.Equal(t, "Alice", res.User.FirstName)

	tests := []struct {
		name string
		in   RegisterInput
		kind apperr.Kind
		msg  string
	}{
		{
			name: "same email",
			in:   RegisterInput{Username: "alice_2", Email: "alice@cornell.edu", Password: "secret1", FirstName: "A", LastName: "S"},
			kind: apperr.Duplicate,
			msg:  "Email already registered",
		},
		{
			name: "same username",
			in:   RegisterInput{Username: "alice_1", Email: "other@cornell.edu", Password: "secret1", FirstName: "A", LastName: "S"},
			kind: apperr.Duplicate,
			msg:  "Username already taken",
		},
		{
			name: "invalid fields",
			in:   RegisterInput{Username: "a!", Email: "nope", Password: "123", FirstName: " ", Year: "alumni"},
			kind: apperr.Validation,
			msg:  "Validation failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.Register(ctx, tt.in)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.msg, ae.Message)
		})
	}

	t.Run("every invalid field reported", func(t *testing.T) {
		_, err := users.Register(ctx, RegisterInput{Username: "a!", Email: "nope", Password: "123", FirstName: " ", Year: "alumni"})
		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		var fields []string
		for _, f := range ae.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{"username", "email", "password", "firstName", "lastName", "year"}, fields)
	})
}

func TestUserService_LoginAndPasswords(t *testing.T) {
	s := newTestStore(t)
	users := NewUserService(s, auth.NewTokenManager("secret", time.Hour))
	ctx := context.Background()
	u := registerUser(t, users, "bob")

	res, err := users.Login(ctx, LoginInput{Email: "BOB@cornell.edu", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Login successful", res.Message)
	assert.Equal(t, u.ID, res.User.ID)

	for _, in := range []LoginInput{
		{Email: "bob@cornell.edu", Password: "wrong"},
		{Email: "nobody@cornell.edu", Password: "secret1"},
	} {
		_, err := users.Login(ctx, in)
		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, apperr.Unauthenticated, ae.Kind)
		assert.Equal(t, "Invalid credentials", ae.Message)
	}

	err = users.ChangePassword(ctx, u, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "newsecret"})
	require.Error(t, err)
	assert.Equal(t, "Current password is incorrect", err.Error())

	require.NoError(t, users.ChangePassword(ctx, u, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "newsecret"}))
	_, err = users.Login(ctx, LoginInput{Email: "bob@cornell.edu", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestUserService_UpdateProfile(t *testing.T) {
	s := newTestStore(t)
	users := NewUserService(s, auth.NewTokenManager("secret", time.Hour))
	ctx := context.Background()
	u := registerUser(t, users, "carol")

	first := "  Caroline "
	year := model.YearSenior
	pub, err := users.UpdateProfile(ctx, u, ProfileInput{FirstName: &first, Year: &year})
	require.NoError(t, err)
	assert.Equal(t, "Caroline", pub.FirstName)
	assert.Equal(t, "Student", pub.LastName)
	assert.Equal(t, model.YearSenior, pub.Year)

	empty := ""
	_, err = users.UpdateProfile(ctx, u, ProfileInput{LastName: &empty})
	assert.Equal(t, apperr.Validation, kindOf(t, err))
}

func TestUserService_Authenticate(t *testing.T) {
	s := newTestStore(t)
	tokens := auth.NewTokenManager("secret", time.Hour)
	users := NewUserService(s, tokens)
	ctx := context.Background()

	ghost, err := tokens.Generate("missing-user")
	require.NoError(t, err)

	_, err = users.Authenticate(ctx, ghost)
	require.Error(t, err)
	assert.Equal(t, "Invalid token", err.Error())

	_, err = users.Authenticate(ctx, "garbage")
	assert.Equal(t, "Invalid token", err.Error())
}

func TestDormService_CreateUpdateMerge(t *testing.T) {
	s := newTestStore(t)
	dorms := NewDormService(s)
	ctx := context.Background()

	d, err := dorms.Create(ctx, []byte(`{
		"name": " Clara Dickson Hall ",
		"location": "North Campus",
		"capacity": 400,
		"amenities": {"laundry": true},
		"availability": ["freshman"],
		"roomTypes": [{"type": "single", "price": 5000, "availability": 10}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Clara Dickson Hall", d.Name)
	assert.True(t, d.Amenities.Wifi, "wifi defaults to true")
	assert.True(t, d.Amenities.Laundry)
	assert.NotNil(t, d.Images)

	updated, err := dorms.Update(ctx, d.ID, []byte(`{"amenities": {"wifi": false}, "capacity": 0, "rating": {"average": 5}}`))
	require.Error(t, err, "capacity 0 overwrites and fails validation")
	assert.Nil(t, updated)

	updated, err = dorms.Update(ctx, d.ID, []byte(`{"amenities": {"wifi": false}, "description": "", "images": []}`))
	require.NoError(t, err)
	assert.False(t, updated.Amenities.Wifi, "false is applied")
	assert.True(t, updated.Amenities.Laundry, "nested keys merge")
	assert.Equal(t, "North Campus", updated.Location, "absent keys are kept")
	assert.Equal(t, 400, *updated.Capacity)
	assert.Len(t, updated.RoomTypes, 1)

	_, err = dorms.Update(ctx, d.ID, []byte(`{"capacity": "many"}`))
	assert.Equal(t, apperr.Validation, kindOf(t, err))

	_, err = dorms.Update(ctx, "missing", []byte(`{}`))
	assert.Equal(t, apperr.NotFound, kindOf(t, err))

	_, err = dorms.Create(ctx, []byte(`{"name": "", "address": {"coordinates": [1]}, "availability": ["alumni"]}`))
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	var fields []string
	for _, f := range ae.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "address.coordinates")
	assert.Contains(t, fields, "availability.0")
}

func TestDormService_Reviews(t *testing.T) {
	s := newTestStore(t)
	users := NewUserService(s, auth.NewTokenManager("secret", time.Hour))
	dorms := NewDormService(s)
	ctx := context.Background()

	alice := registerUser(t, users, "alice")
	bob := registerUser(t, users, "bob")
	d, err := dorms.Create(ctx, []byte(`{"name": "Risley Hall"}`))
	require.NoError(t, err)

	res, err := dorms.AddReview(ctx, d.ID, alice, ReviewInput{Rating: 5, Comment: "Great"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.NewAverageRating)
	assert.Equal(t, "Alice Student", res.Review.UserName)

	res, err = dorms.AddReview(ctx, d.ID, bob, ReviewInput{Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.NewAverageRating)

	_, err = dorms.AddReview(ctx, d.ID, alice, ReviewInput{Rating: 1})
	assert.Equal(t, apperr.Conflict, kindOf(t, err))

	got, err := dorms.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rating.Count)
	assert.Equal(t, 4.0, got.Rating.Average)

	_, err = dorms.AddReview(ctx, d.ID, bob, ReviewInput{Rating: 6})
	assert.Equal(t, apperr.Validation, kindOf(t, err))

	_, err = dorms.AddReview(ctx, "missing", bob, ReviewInput{Rating: 4})
	assert.Equal(t, apperr.NotFound, kindOf(t, err))
}

// conflictStore simulates a document that never stops changing.
type conflictStore struct {
	store.Store
}

func (conflictStore) UpdateDorm(context.Context, string, func(*model.Dorm) error) (*model.Dorm, error) {
	return nil, store.ErrVersionConflict
}

func TestDormService_ConflictMapsTo409(t *testing.T) {
	dorms := NewDormService(conflictStore{Store: newTestStore(t)})
	_, err := dorms.AddReview(context.Background(), "d1", &model.User{ID: "u1"}, ReviewInput{Rating: 4})
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.Conflict, ae.Kind)
	assert.Equal(t, 409, ae.Kind.Status())
}

func TestDormService_ListPagination(t *testing.T) {
	s := newTestStore(t)
	dorms := NewDormService(s)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := dorms.Create(ctx, []byte(fmt.Sprintf(`{"name": "Hall %02d"}`, i)))
		require.NoError(t, err)
	}

	page2, err := dorms.List(ctx, store.DormFilter{Page: store.Page{Number: 2, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page2.Dorms, 10)
	assert.Equal(t, "Hall 10", page2.Dorms[0].Name)
	assert.Equal(t, Pagination{Current: 2, Pages: 3, Total: 25, HasNext: true, HasPrev: true}, page2.Pagination)

	page3, err := dorms.List(ctx, store.DormFilter{Page: store.Page{Number: 3, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, page3.Dorms, 5)
	assert.False(t, page3.Pagination.HasNext)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Current: 1, Pages: 0, Total: 0}, NewPagination(store.Page{Number: 1, Limit: 10}, 0))
	assert.Equal(t, Pagination{Current: 2, Pages: 2, Total: 20, HasPrev: true}, NewPagination(store.Page{Number: 2, Limit: 10}, 20))
}

func TestBlogService_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	users := NewUserService(s, auth.NewTokenManager("secret", time.Hour))
	dorms := NewDormService(s)
	blogs := NewBlogService(s)
	ctx := context.Background()

	alice := registerUser(t, users, "alice")
	bob := registerUser(t, users, "bob")
	admin := registerUser(t, users, "admin")
	admin.Role = model.RoleAdmin

	d, err := dorms.Create(ctx, []byte(`{"name": "Mews Hall"}`))
	require.NoError(t, err)

	long := strings.Repeat("é", 350)
	dormID := d.ID
	tags := []string{"Move-In", " "}
	post, err := blogs.Create(ctx, alice, BlogInput{Title: " First week ", Content: long, Dorm: &dormID, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "First week", post.Title)
	assert.Equal(t, strings.Repeat("é", 300)+"...", post.Excerpt)
	assert.Equal(t, "Alice Student", post.AuthorName)
	assert.Equal(t, model.CategoryGeneral, post.Category)
	assert.Equal(t, []string{"Move-In"}, post.Tags)
	require.NotNil(t, post.Dorm)
	assert.Equal(t, "Mews Hall", post.Dorm.Name)

	missing := uuid.NewString()
	_, err = blogs.Create(ctx, alice, BlogInput{Title: "x", Content: "y", Dorm: &missing})
	assert.Equal(t, apperr.NotFound, kindOf(t, err))

	got, err := blogs.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)

	_, err = blogs.Update(ctx, bob, post.ID, BlogInput{Title: "hijack", Content: "mine"})
	assert.Equal(t, apperr.Forbidden, kindOf(t, err))

	noDorm := ""
	updated, err := blogs.Update(ctx, admin, post.ID, BlogInput{Title: "Edited", Content: "short", Dorm: &noDorm})
	require.NoError(t, err)
	assert.Equal(t, "short", updated.Excerpt)
	assert.Nil(t, updated.Dorm)
	assert.Equal(t, []string{"Move-In"}, updated.Tags, "tags kept when absent")

	like, err := blogs.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Message: "Post liked", LikeCount: 1, IsLiked: true}, *like)
	like, err = blogs.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Message: "Post unliked", LikeCount: 0, IsLiked: false}, *like)

	c, err := blogs.AddComment(ctx, bob, post.ID, CommentInput{Content: "  welcome!  "})
	require.NoError(t, err)
	assert.Equal(t, "welcome!", c.Content)
	assert.Equal(t, "bob", c.Author.Username)

	_, err = blogs.AddComment(ctx, bob, post.ID, CommentInput{Content: "   "})
	assert.Equal(t, apperr.Validation, kindOf(t, err))

	got, err = blogs.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)
	assert.Equal(t, "bob", got.Comments[0].Author.Username)

	err = blogs.Delete(ctx, bob, post.ID)
	assert.Equal(t, apperr.Forbidden, kindOf(t, err))
	require.NoError(t, blogs.Delete(ctx, alice, post.ID))

	_, err = blogs.Get(ctx, post.ID)
	assert.Equal(t, apperr.NotFound, kindOf(t, err))
}

func TestBlogService_DraftsOnlyForAuthor(t *testing.T) {
	s := newTestStore(t)
	users := NewUserService(s, auth.NewTokenManager("secret", time.Hour))
	blogs := NewBlogService(s)
	ctx := context.Background()

	alice := registerUser(t, users, "alice")
	draft := false
	_, err := blogs.Create(ctx, alice, BlogInput{Title: "Draft", Content: "wip", Published: &draft})
	require.NoError(t, err)
	_, err = blogs.Create(ctx, alice, BlogInput{Title: "Live", Content: "done"})
	require.NoError(t, err)

	public, err := blogs.List(ctx, store.BlogFilter{Page: store.Page{Number: 1, Limit: 10}, IncludeDrafts: true})
	require.NoError(t, err)
	require.Len(t, public.Blogs, 1)
	assert.Equal(t, "Live", public.Blogs[0].Title)
	assert.Equal(t, "alice", public.Blogs[0].Author.Username)

	mine, err := blogs.ListByAuthor(ctx, alice.ID, store.BlogFilter{Page: store.Page{Number: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, mine.Blogs, 2)
	assert.Equal(t, int64(2), mine.Pagination.Total)
}
