package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cudorms-backend/config"
	"cudorms-backend/internal/api"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/cache"
	"cudorms-backend/internal/db"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/store"
)

func newTestAPI(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	model.PasswordCost = bcrypt.MinCost

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	s := store.NewGormStore(gdb)
	cfg := &config.ServerConfig{RequestTimeout: 5 * time.Second, CacheTTL: time.Minute}
	router := api.NewRouter(s, cache.NewMemory(time.Minute, time.Minute), auth.NewTokenManager("test-secret", time.Hour), cfg)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Close()
	})
	return srv, gdb
}

func registerSession(t *testing.T, baseURL, username string) *Session {
	t.Helper()
	sess := NewSession(New(baseURL))
	st, err := sess.Register(context.Background(), RegisterRequest{
		Username:  username,
		Email:     username + "@cornell.edu",
		Password:  "secret1",
		FirstName: "Test",
		LastName:  username,
		Year:      "junior",
	})
	require.NoError(t, err)
	require.NotNil(t, st.Auth.User)
	require.NotEmpty(t, st.Auth.Token)
	return sess
}

func TestClient_AuthAndErrors(t *testing.T) {
	srv, _ := newTestAPI(t)
	ctx := context.Background()
	c := New(srv.URL)

	status, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	_, err = c.Register(ctx, RegisterRequest{Username: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.NotEmpty(t, apiErr.Errors)

	_, err = c.Profile(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	sess := registerSession(t, srv.URL, "alice")
	u, err := sess.Client().Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "student", u.Role)

	last := "Smith"
	st, err := sess.UpdateProfile(ctx, ProfileUpdate{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Smith", st.Auth.User.LastName)

	require.NoError(t, sess.Client().ChangePassword(ctx, "secret1", "another1"))
	st = sess.Logout()
	assert.Nil(t, st.Auth.User)

	st, err = sess.Login(ctx, "alice@cornell.edu", "secret1")
	assert.Error(t, err)
	assert.Equal(t, "Invalid credentials", st.Auth.Error)

	st, err = sess.Login(ctx, "alice@cornell.edu", "another1")
	require.NoError(t, err)
	assert.Empty(t, st.Auth.Error)
	assert.Equal(t, "alice", st.Auth.User.Username)
}

func TestSession_DormsAndReviews(t *testing.T) {
	srv, gdb := newTestAPI(t)
	ctx := context.Background()

	admin := registerSession(t, srv.URL, "admin")
	require.NoError(t, gdb.Model(&model.User{}).
		Where("id = ?", admin.State().Auth.User.ID).
		Update("role", model.RoleAdmin).Error)
	student := registerSession(t, srv.URL, "bob")

	st, err := admin.CreateDorm(ctx, map[string]interface{}{"name": "Balch Hall", "location": "North"})
	require.NoError(t, err)
	require.Len(t, st.Dorms.Dorms, 1)
	id := st.Dorms.Dorms[0].ID

	_, err = student.CreateDorm(ctx, map[string]interface{}{"name": "Nope"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	st, err = admin.FetchDorm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Balch Hall", st.Dorms.Current.Name)

	st, err = admin.AddReview(ctx, id, 5, "Great")
	require.NoError(t, err)
	assert.Equal(t, Rating{Average: 5, Count: 1}, st.Dorms.Current.Rating)

	_, err = student.FetchDorm(ctx, id)
	require.NoError(t, err)
	st, err = student.AddReview(ctx, id, 3, "")
	require.NoError(t, err)
	assert.Equal(t, Rating{Average: 4, Count: 2}, st.Dorms.Current.Rating)
	assert.Len(t, st.Dorms.Current.Reviews, 2)

	st, err = student.AddReview(ctx, id, 1, "")
	require.Error(t, err)
	assert.Equal(t, "You have already reviewed this dorm", st.Dorms.Error)

	st, err = admin.UpdateDorm(ctx, id, map[string]interface{}{"description": "Renovated"})
	require.NoError(t, err)
	assert.Equal(t, "Renovated", st.Dorms.Dorms[0].Description)

	student.SetDormFilters(DormFilters{MinRating: 4.5})
	st, err = student.FetchDorms(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, st.Dorms.Dorms)

	student.SetDormFilters(DormFilters{Search: "balch"})
	st, err = student.FetchDorms(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, st.Dorms.Dorms, 1)
	assert.Equal(t, 4.0, st.Dorms.Dorms[0].Rating.Average)
	assert.Equal(t, Pagination{Current: 1, Pages: 1, Total: 1}, st.Dorms.Pagination)

	st, err = admin.DeleteDorm(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, st.Dorms.Dorms)
	assert.Nil(t, st.Dorms.Current)

	st, err = student.FetchDorm(ctx, id)
	require.Error(t, err)
	assert.False(t, st.Dorms.Loading)
	assert.NotEmpty(t, st.Dorms.Error)
}

func TestSession_BlogsLikesComments(t *testing.T) {
	srv, _ := newTestAPI(t)
	ctx := context.Background()

	alice := registerSession(t, srv.URL, "alice")
	bob := registerSession(t, srv.URL, "bob")

	st, err := alice.CreateBlog(ctx, BlogRequest{Title: "Hello", Content: "First post"})
	require.NoError(t, err)
	require.Len(t, st.Blogs.Blogs, 1)
	post := st.Blogs.Blogs[0]
	assert.Equal(t, "First post", post.Excerpt)
	assert.True(t, post.IsPublished)

	_, err = bob.FetchBlog(ctx, post.ID)
	require.NoError(t, err)

	bobID := bob.State().Auth.User.ID
	st, err = bob.ToggleLike(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Blogs.Current.LikeCount)
	require.Len(t, st.Blogs.Current.Likes, 1)
	assert.Equal(t, bobID, st.Blogs.Current.Likes[0].ID)

	st, err = bob.ToggleLike(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Blogs.Current.LikeCount)
	assert.Empty(t, st.Blogs.Current.Likes)

	st, err = bob.AddComment(ctx, post.ID, "Nice")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Blogs.Current.CommentCount)
	assert.Equal(t, "Nice", st.Blogs.Current.Comments[0].Content)

	_, err = bob.UpdateBlog(ctx, post.ID, BlogRequest{Title: "Mine", Content: "now"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	draft := false
	_, err = alice.UpdateBlog(ctx, post.ID, BlogRequest{Title: "Hello", Content: "Edited", IsPublished: &draft})
	require.NoError(t, err)

	st, err = bob.FetchBlogs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, st.Blogs.Blogs, "drafts are not listed publicly")

	page, err := alice.Client().ListUserBlogs(ctx, alice.State().Auth.User.ID, BlogQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Blogs, 1)

	_, err = bob.Client().ListUserBlogs(ctx, alice.State().Auth.User.ID, BlogQuery{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	st, err = alice.DeleteBlog(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, st.Blogs.Blogs)

	anon := NewSession(New(srv.URL))
	st, err = anon.ToggleLike(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, ErrNotLoggedIn.Error(), st.Blogs.Error)
}
