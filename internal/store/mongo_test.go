package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cudorms-backend/internal/model"
)

// newMongoStore connects to CUDORMS_TEST_MONGO_URI and uses a throwaway
// database, or skips the test when the variable is unset.
func newMongoStore(t *testing.T) Store {
	t.Helper()
	uri := os.Getenv("CUDORMS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CUDORMS_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("cudorms_test_" + uuid.NewString()[:8])
	s, err := NewMongoStore(ctx, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestMongoStore_ReviewsAndLikes(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()

	u := &model.User{Username: "mongo_user", Email: "m@cornell.edu", Password: "secret1", FirstName: "M", LastName: "U"}
	require.NoError(t, s.CreateUser(ctx, u))
	dup := &model.User{Username: "mongo_user", Email: "other@cornell.edu", Password: "secret1", FirstName: "M", LastName: "U"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrDuplicate)

	d := model.NewDorm()
	d.Name = "Risley Hall"
	require.NoError(t, s.CreateDorm(ctx, &d))

	calls := 0
	updated, err := s.UpdateDorm(ctx, d.ID, func(doc *model.Dorm) error {
		calls++
		if calls == 1 {
			_, err := s.UpdateDorm(ctx, d.ID, func(inner *model.Dorm) error {
				inner.AddReview(model.Review{ID: "r0", User: "other", Rating: 3})
				return nil
			})
			require.NoError(t, err)
		}
		doc.AddReview(model.Review{ID: "r1", User: u.ID, Rating: 5})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating.Count)
	assert.Equal(t, 4.0, updated.Rating.Average)

	dorms, total, err := s.ListDorms(ctx, DormFilter{Page: Page{1, 10}, Search: "risley", MinRating: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, dorms, 1)

	b := &model.Blog{Title: "Hello", Content: "World", Author: u.ID, Published: true, Tags: []string{"Intro"}}
	require.NoError(t, s.CreateBlog(ctx, b))
	require.NoError(t, s.IncrementBlogViews(ctx, b.ID))

	blogs, _, err := s.ListBlogs(ctx, BlogFilter{Page: Page{1, 10}, Search: "intro"})
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, 1, blogs[0].Views)
}

func TestMongoStore_UpdateBlogKeepsConcurrentViews(t *testing.T) {
	s := newMongoStore(t)
	ctx := context.Background()

	b := &model.Blog{Title: "Hello", Content: "World", Author: "u1", Published: true}
	require.NoError(t, s.CreateBlog(ctx, b))
	require.NoError(t, s.IncrementBlogViews(ctx, b.ID))

	_, err := s.UpdateBlog(ctx, b.ID, func(doc *model.Blog) error {
		require.NoError(t, s.IncrementBlogViews(ctx, b.ID))
		doc.ToggleLike("u2")
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetBlog(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)
	assert.Equal(t, []string{"u2"}, []string(got.Likes))
	assert.Equal(t, b.CreatedAt.Unix(), got.CreatedAt.Unix())
}
