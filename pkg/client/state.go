package client

import "errors"

// AppState is everything a UI shows. Every update method takes the state by
// value and returns a new one; slices held by the receiver are never written.
type AppState struct {
	Auth  AuthState
	Dorms DormState
	Blogs BlogState
}

type AuthState struct {
	User    *User
	Token   string
	Loading bool
	Error   string
}

type DormFilters struct {
	Search    string
	Year      string
	MinRating float64
}

type DormState struct {
	Dorms      []Dorm
	Current    *Dorm
	Pagination Pagination
	Loading    bool
	Error      string
	Filters    DormFilters
}

type BlogFilters struct {
	Category string
	Search   string
	Dorm     string
}

type BlogState struct {
	Blogs      []Blog
	Current    *Blog
	Pagination Pagination
	Loading    bool
	Error      string
	Filters    BlogFilters
}

// errorMessage prefers the server's message over transport detail.
func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func (s AuthState) Pending() AuthState {
	s.Loading = true
	s.Error = ""
	return s
}

func (s AuthState) Rejected(err error) AuthState {
	s.Loading = false
	s.Error = errorMessage(err)
	return s
}

func (s AuthState) Authenticated(res *AuthResponse) AuthState {
	user := res.User
	s.User = &user
	s.Token = res.Token
	s.Loading = false
	s.Error = ""
	return s
}

func (s AuthState) ProfileLoaded(u *User) AuthState {
	user := *u
	s.User = &user
	s.Loading = false
	s.Error = ""
	return s
}

func (s AuthState) LoggedOut() AuthState {
	return AuthState{}
}

func (s AuthState) ClearError() AuthState {
	s.Error = ""
	return s
}

func (s DormState) Pending() DormState {
	s.Loading = true
	s.Error = ""
	return s
}

func (s DormState) Rejected(err error) DormState {
	s.Loading = false
	s.Error = errorMessage(err)
	return s
}

func (s DormState) ListFulfilled(page *DormPage) DormState {
	s.Dorms = append([]Dorm(nil), page.Dorms...)
	s.Pagination = page.Pagination
	s.Loading = false
	return s
}

func (s DormState) DetailFulfilled(d *Dorm) DormState {
	current := *d
	s.Current = &current
	s.Loading = false
	return s
}

// ReviewAdded records a new review on the current dorm and on its copy in
// the list, if either holds dormID.
func (s DormState) ReviewAdded(dormID string, res *ReviewResponse) DormState {
	apply := func(d Dorm) Dorm {
		reviews := make([]Review, 0, len(d.Reviews)+1)
		reviews = append(reviews, d.Reviews...)
		d.Reviews = append(reviews, res.Review)
		d.Rating = Rating{Average: res.NewAverageRating, Count: d.Rating.Count + 1}
		return d
	}
	if s.Current != nil && s.Current.ID == dormID {
		current := apply(*s.Current)
		s.Current = &current
	}
	s.Dorms = mapDorms(s.Dorms, func(d Dorm) Dorm {
		if d.ID == dormID {
			return apply(d)
		}
		return d
	})
	s.Loading = false
	return s
}

func (s DormState) Created(d *Dorm) DormState {
	dorms := make([]Dorm, 0, len(s.Dorms)+1)
	dorms = append(dorms, *d)
	s.Dorms = append(dorms, s.Dorms...)
	s.Loading = false
	return s
}

func (s DormState) Updated(d *Dorm) DormState {
	s.Dorms = mapDorms(s.Dorms, func(old Dorm) Dorm {
		if old.ID == d.ID {
			return *d
		}
		return old
	})
	if s.Current != nil && s.Current.ID == d.ID {
		current := *d
		s.Current = &current
	}
	s.Loading = false
	return s
}

func (s DormState) Deleted(id string) DormState {
	dorms := make([]Dorm, 0, len(s.Dorms))
	for _, d := range s.Dorms {
		if d.ID != id {
			dorms = append(dorms, d)
		}
	}
	s.Dorms = dorms
	if s.Current != nil && s.Current.ID == id {
		s.Current = nil
	}
	s.Loading = false
	return s
}

func (s DormState) SetFilters(f DormFilters) DormState {
	s.Filters = f
	return s
}

func (s DormState) ClearFilters() DormState {
	s.Filters = DormFilters{}
	return s
}

func (s DormState) ClearError() DormState {
	s.Error = ""
	return s
}

func (s DormState) ClearCurrent() DormState {
	s.Current = nil
	return s
}

func mapDorms(in []Dorm, fn func(Dorm) Dorm) []Dorm {
	if in == nil {
		return nil
	}
	out := make([]Dorm, len(in))
	for i, d := range in {
		out[i] = fn(d)
	}
	return out
}

func (s BlogState) Pending() BlogState {
	s.Loading = true
	s.Error = ""
	return s
}

func (s BlogState) Rejected(err error) BlogState {
	s.Loading = false
	s.Error = errorMessage(err)
	return s
}

func (s BlogState) ListFulfilled(page *BlogPage) BlogState {
	s.Blogs = append([]Blog(nil), page.Blogs...)
	s.Pagination = page.Pagination
	s.Loading = false
	return s
}

func (s BlogState) DetailFulfilled(b *Blog) BlogState {
	current := *b
	s.Current = &current
	s.Loading = false
	return s
}

func (s BlogState) Created(b *Blog) BlogState {
	blogs := make([]Blog, 0, len(s.Blogs)+1)
	blogs = append(blogs, *b)
	s.Blogs = append(blogs, s.Blogs...)
	s.Loading = false
	return s
}

func (s BlogState) Updated(b *Blog) BlogState {
	s.Blogs = mapBlogs(s.Blogs, func(old Blog) Blog {
		if old.ID == b.ID {
			return *b
		}
		return old
	})
	if s.Current != nil && s.Current.ID == b.ID {
		current := *b
		s.Current = &current
	}
	s.Loading = false
	return s
}

func (s BlogState) Deleted(id string) BlogState {
	blogs := make([]Blog, 0, len(s.Blogs))
	for _, b := range s.Blogs {
		if b.ID != id {
			blogs = append(blogs, b)
		}
	}
	s.Blogs = blogs
	if s.Current != nil && s.Current.ID == id {
		s.Current = nil
	}
	s.Loading = false
	return s
}

// LikeToggled adds or removes user from the likes of blogID according to
// res.IsLiked, and adopts the server's count.
func (s BlogState) LikeToggled(blogID string, user UserRef, res *LikeResponse) BlogState {
	apply := func(b Blog) Blog {
		likes := make([]UserRef, 0, len(b.Likes)+1)
		for _, l := range b.Likes {
			if l.ID != user.ID {
				likes = append(likes, l)
			}
		}
		if res.IsLiked {
			likes = append(likes, user)
		}
		b.Likes = likes
		b.LikeCount = res.LikeCount
		return b
	}
	return s.forBlog(blogID, apply)
}

func (s BlogState) CommentAdded(blogID string, c *Comment) BlogState {
	apply := func(b Blog) Blog {
		comments := make([]Comment, 0, len(b.Comments)+1)
		comments = append(comments, b.Comments...)
		b.Comments = append(comments, *c)
		b.CommentCount++
		return b
	}
	return s.forBlog(blogID, apply)
}

func (s BlogState) forBlog(id string, fn func(Blog) Blog) BlogState {
	if s.Current != nil && s.Current.ID == id {
		current := fn(*s.Current)
		s.Current = &current
	}
	s.Blogs = mapBlogs(s.Blogs, func(b Blog) Blog {
		if b.ID == id {
			return fn(b)
		}
		return b
	})
	s.Loading = false
	return s
}

func (s BlogState) SetFilters(f BlogFilters) BlogState {
	s.Filters = f
	return s
}

func (s BlogState) ClearFilters() BlogState {
	s.Filters = BlogFilters{}
	return s
}

func (s BlogState) ClearError() BlogState {
	s.Error = ""
	return s
}

func (s BlogState) ClearCurrent() BlogState {
	s.Current = nil
	return s
}

func mapBlogs(in []Blog, fn func(Blog) Blog) []Blog {
	if in == nil {
		return nil
	}
	out := make([]Blog, len(in))
	for i, b := range in {
		out[i] = fn(b)
	}
	return out
}
