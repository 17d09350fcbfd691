package client

import (
	"context"
	"errors"
	"sync"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Session pairs a Client with the AppState its calls produce. Each action
// performs one request and returns the state that resulted from it.
type Session struct {
	client *Client

	mu    sync.Mutex
	state AppState
}

func NewSession(c *Client) *Session {
	s := &Session{client: c}
	s.state.Auth.Token = c.Token()
	return s
}

func (s *Session) Client() *Client { return s.client }

func (s *Session) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// update applies fn to the latest state; the lock is never held across a
// request.
func (s *Session) update(fn func(AppState) AppState) AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

func (s *Session) Register(ctx context.Context, in RegisterRequest) (AppState, error) {
	s.update(func(st AppState) AppState { st.Auth = st.Auth.Pending(); return st })
	res, err := s.client.Register(ctx, in)
	return s.authenticated(res, err)
}

func (s *Session) Login(ctx context.Context, email, password string) (AppState, error) {
	s.update(func(st AppState) AppState { st.Auth = st.Auth.Pending(); return st })
	res, err := s.client.Login(ctx, email, password)
	return s.authenticated(res, err)
}

func (s *Session) authenticated(res *AuthResponse, err error) (AppState, error) {
	if err != nil {
		return s.update(func(st AppState) AppState { st.Auth = st.Auth.Rejected(err); return st }), err
	}
	s.client.SetToken(res.Token)
	return s.update(func(st AppState) AppState { st.Auth = st.Auth.Authenticated(res); return st }), nil
}

func (s *Session) Logout() AppState {
	s.client.SetToken("")
	return s.update(func(st AppState) AppState { st.Auth = st.Auth.LoggedOut(); return st })
}

func (s *Session) LoadProfile(ctx context.Context) (AppState, error) {
	s.update(func(st AppState) AppState { st.Auth = st.Auth.Pending(); return st })
	u, err := s.client.Profile(ctx)
	if err != nil {
		return s.update(func(st AppState) AppState { st.Auth = st.Auth.Rejected(err); return st }), err
	}
	return s.update(func(st AppState) AppState { st.Auth = st.Auth.ProfileLoaded(u); return st }), nil
}

func (s *Session) UpdateProfile(ctx context.Context, in ProfileUpdate) (AppState, error) {
	u, err := s.client.UpdateProfile(ctx, in)
	if err != nil {
		return s.update(func(st AppState) AppState { st.Auth = st.Auth.Rejected(err); return st }), err
	}
	return s.update(func(st AppState) AppState { st.Auth = st.Auth.ProfileLoaded(u); return st }), nil
}

func (s *Session) dormsRejected(err error) (AppState, error) {
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.Rejected(err); return st }), err
}

func (s *Session) SetDormFilters(f DormFilters) AppState {
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.SetFilters(f); return st })
}

// FetchDorms loads one page of dorms using the current dorm filters.
func (s *Session) FetchDorms(ctx context.Context, page, limit int) (AppState, error) {
	st := s.update(func(st AppState) AppState { st.Dorms = st.Dorms.Pending(); return st })
	f := st.Dorms.Filters
	res, err := s.client.ListDorms(ctx, DormQuery{
		Page: page, Limit: limit, Search: f.Search, Year: f.Year, MinRating: f.MinRating,
	})
	if err != nil {
		return s.dormsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.ListFulfilled(res); return st }), nil
}

func (s *Session) FetchDorm(ctx context.Context, id string) (AppState, error) {
	s.update(func(st AppState) AppState { st.Dorms = st.Dorms.Pending(); return st })
	d, err := s.client.GetDorm(ctx, id)
	if err != nil {
		return s.dormsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.DetailFulfilled(d); return st }), nil
}

func (s *Session) CreateDorm(ctx context.Context, fields interface{}) (AppState, error) {
	d, err := s.client.CreateDorm(ctx, fields)
	if err != nil {
		return s.dormsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.Created(d); return st }), nil
}

func (s *Session) UpdateDorm(ctx context.Context, id string, patch interface{}) (AppState, error) {
	d, err := s.client.UpdateDorm(ctx, id, patch)
	if err != nil {
		return s.dormsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.Updated(d); return st }), nil
}

func (s *Session) DeleteDorm(ctx context.Context, id string) (AppState, error) {
	if err := s.client.DeleteDorm(ctx, id); err != nil {
		return s.dormsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.Deleted(id); return st }), nil
}

func (s *Session) AddReview(ctx context.Context, dormID string, rating int, comment string) (AppState, error) {
	res, err := s.client.AddReview(ctx, dormID, rating, comment)
	if err != nil {
		return s.dormsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Dorms = st.Dorms.ReviewAdded(dormID, res); return st }), nil
}

func (s *Session) blogsRejected(err error) (AppState, error) {
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.Rejected(err); return st }), err
}

func (s *Session) SetBlogFilters(f BlogFilters) AppState {
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.SetFilters(f); return st })
}

// FetchBlogs loads one page of published posts using the current blog filters.
func (s *Session) FetchBlogs(ctx context.Context, page, limit int) (AppState, error) {
	st := s.update(func(st AppState) AppState { st.Blogs = st.Blogs.Pending(); return st })
	f := st.Blogs.Filters
	res, err := s.client.ListBlogs(ctx, BlogQuery{
		Page: page, Limit: limit, Search: f.Search, Category: f.Category, Dorm: f.Dorm,
	})
	if err != nil {
		return s.blogsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.ListFulfilled(res); return st }), nil
}

func (s *Session) FetchBlog(ctx context.Context, id string) (AppState, error) {
	s.update(func(st AppState) AppState { st.Blogs = st.Blogs.Pending(); return st })
	b, err := s.client.GetBlog(ctx, id)
	if err != nil {
		return s.blogsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.DetailFulfilled(b); return st }), nil
}

func (s *Session) CreateBlog(ctx context.Context, in BlogRequest) (AppState, error) {
	b, err := s.client.CreateBlog(ctx, in)
	if err != nil {
		return s.blogsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.Created(b); return st }), nil
}

func (s *Session) UpdateBlog(ctx context.Context, id string, in BlogRequest) (AppState, error) {
	b, err := s.client.UpdateBlog(ctx, id, in)
	if err != nil {
		return s.blogsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.Updated(b); return st }), nil
}

func (s *Session) DeleteBlog(ctx context.Context, id string) (AppState, error) {
	if err := s.client.DeleteBlog(ctx, id); err != nil {
		return s.blogsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.Deleted(id); return st }), nil
}

// ToggleLike flips the logged-in user's like on a post.
func (s *Session) ToggleLike(ctx context.Context, blogID string) (AppState, error) {
	user := s.State().Auth.User
	if user == nil {
		return s.blogsRejected(ErrNotLoggedIn)
	}
	res, err := s.client.ToggleLike(ctx, blogID)
	if err != nil {
		return s.blogsRejected(err)
	}
	ref := UserRef{ID: user.ID, Username: user.Username, FirstName: user.FirstName, LastName: user.LastName}
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.LikeToggled(blogID, ref, res); return st }), nil
}

func (s *Session) AddComment(ctx context.Context, blogID, content string) (AppState, error) {
	c, err := s.client.AddComment(ctx, blogID, content)
	if err != nil {
		return s.blogsRejected(err)
	}
	return s.update(func(st AppState) AppState { st.Blogs = st.Blogs.CommentAdded(blogID, c); return st }), nil
}
