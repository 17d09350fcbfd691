package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/parse"
	"cudorms-backend/internal/store"
)

var errBlogNotFound = apperr.New(apperr.NotFound, "Blog post not found")

// BlogInput is the body of a create or update request. Pointer fields are
// optional and only applied when present.
type BlogInput struct {
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Excerpt       *string         `json:"excerpt"`
	Dorm          *string         `json:"dorm"`
	Category      *model.Category `json:"category"`
	Tags          *[]string       `json:"tags"`
	FeaturedImage *string         `json:"featuredImage"`
	Published     *bool           `json:"isPublished"`
}

func (in *BlogInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Excerpt != nil {
		*in.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.Dorm != nil {
		*in.Dorm = strings.TrimSpace(*in.Dorm)
	}
	if in.Tags != nil {
		tags := make([]string, 0, len(*in.Tags))
		for _, t := range *in.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		in.Tags = &tags
	}
}

func (in BlogInput) Validate() error {
	const titleMsg = "Title must be between 1 and 200 characters"
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required.Error(titleMsg), validation.RuneLength(1, 200).Error(titleMsg)),
		validation.Field(&in.Content, validation.Required.Error("Content is required")),
		validation.Field(&in.Excerpt, validation.RuneLength(0, model.ExcerptLength).Error("Excerpt must be less than 300 characters")),
		validation.Field(&in.Dorm, validation.By(func(v interface{}) error {
			if id, _ := v.(*string); id != nil && *id != "" && !parse.ValidID(*id) {
				return errors.New("Invalid dorm ID")
			}
			return nil
		})),
		validation.Field(&in.Category, validation.In(model.CategoryValues...).Error("Invalid category")),
		validation.Field(&in.FeaturedImage, validation.RuneLength(0, 512)),
	)
}

type CommentInput struct {
	Content string `json:"content"`
}

func (in CommentInput) Validate() error {
	const msg = "Comment must be between 1 and 1000 characters"
	return validation.ValidateStruct(&in,
		validation.Field(&in.Content, validation.Required.Error(msg), validation.RuneLength(1, 1000).Error(msg)),
	)
}

// CommentView is a comment with its author populated.
type CommentView struct {
	ID         string        `json:"_id"`
	Author     model.UserRef `json:"author"`
	AuthorName string        `json:"authorName"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// BlogView is a post with its references populated.
type BlogView struct {
	ID            string          `json:"_id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Excerpt       string          `json:"excerpt"`
	Author        model.UserRef   `json:"author"`
	AuthorName    string          `json:"authorName"`
	Dorm          *model.DormRef  `json:"dorm"`
	Tags          []string        `json:"tags"`
	FeaturedImage string          `json:"featuredImage,omitempty"`
	Published     bool            `json:"isPublished"`
	Views         int             `json:"views"`
	Likes         []model.UserRef `json:"likes"`
	Comments      []CommentView   `json:"comments"`
	Category      model.Category  `json:"category"`
	LikeCount     int             `json:"likeCount"`
	CommentCount  int             `json:"commentCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type BlogList struct {
	Blogs      []BlogView `json:"blogs"`
	Pagination Pagination `json:"pagination"`
}

type LikeResult struct {
	Message   string `json:"message"`
	LikeCount int    `json:"likeCount"`
	IsLiked   bool   `json:"isLiked"`
}

// BlogService manages posts, their likes and their comments.
type BlogService struct {
	store store.Store
	now   func() time.Time
}

func NewBlogService(s store.Store) *BlogService {
	return &BlogService{store: s, now: time.Now}
}

func (s *BlogService) List(ctx context.Context, f store.BlogFilter) (*BlogList, error) {
	f.IncludeDrafts = false
	return s.list(ctx, f)
}

// ListByAuthor returns every post by authorID, drafts included.
func (s *BlogService) ListByAuthor(ctx context.Context, authorID string, f store.BlogFilter) (*BlogList, error) {
	f.Author = authorID
	f.IncludeDrafts = true
	return s.list(ctx, f)
}

func (s *BlogService) list(ctx context.Context, f store.BlogFilter) (*BlogList, error) {
	blogs, total, err := s.store.ListBlogs(ctx, f)
	if err != nil {
		return nil, err
	}
	views, err := s.populate(ctx, blogs...)
	if err != nil {
		return nil, err
	}
	return &BlogList{Blogs: views, Pagination: NewPagination(f.Page, total)}, nil
}

// Get returns a populated post and counts the view.
func (s *BlogService) Get(ctx context.Context, id string) (*BlogView, error) {
	if err := s.store.IncrementBlogViews(ctx, id); err != nil {
		return nil, blogError(err)
	}
	b, err := s.store.GetBlog(ctx, id)
	if err != nil {
		return nil, blogError(err)
	}
	return s.one(ctx, b)
}

func (s *BlogService) Create(ctx context.Context, u *model.User, in BlogInput) (*BlogView, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	if err := s.checkDorm(ctx, in.Dorm); err != nil {
		return nil, err
	}

	b := &model.Blog{
		Title:      in.Title,
		Content:    in.Content,
		Author:     u.ID,
		AuthorName: u.DisplayName(),
		Published:  true,
	}
	in.applyOptional(b)
	if in.Excerpt == nil || *in.Excerpt == "" {
		b.Excerpt = model.DeriveExcerpt(b.Content)
	}
	if err := s.store.CreateBlog(ctx, b); err != nil {
		return nil, fmt.Errorf("create blog: %w", err)
	}
	return s.one(ctx, b)
}

func (in BlogInput) applyOptional(b *model.Blog) {
	if in.Excerpt != nil {
		b.Excerpt = *in.Excerpt
	}
	if in.Dorm != nil {
		if *in.Dorm == "" {
			b.DormID = nil
		} else {
			id := *in.Dorm
			b.DormID = &id
		}
	}
	if in.Category != nil {
		b.Category = *in.Category
	}
	if in.Tags != nil {
		b.Tags = datatypes.JSONSlice[string](*in.Tags)
	}
	if in.FeaturedImage != nil {
		b.FeaturedImage = *in.FeaturedImage
	}
	if in.Published != nil {
		b.Published = *in.Published
	}
}

// Update replaces title and content and any optional field present in in.
// Only the author or an admin may edit a post.
func (s *BlogService) Update(ctx context.Context, u *model.User, id string, in BlogInput) (*BlogView, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	if err := s.checkDorm(ctx, in.Dorm); err != nil {
		return nil, err
	}

	b, err := s.store.UpdateBlog(ctx, id, func(doc *model.Blog) error {
		if !auth.OwnsOrAdmin(u, doc.Author) {
			return apperr.New(apperr.Forbidden, "Not authorized to edit this post")
		}
		doc.Title = in.Title
		doc.Content = in.Content
		in.applyOptional(doc)
		if in.Excerpt == nil || *in.Excerpt == "" {
			doc.Excerpt = model.DeriveExcerpt(doc.Content)
		}
		return nil
	})
	if err != nil {
		return nil, blogError(err)
	}
	return s.one(ctx, b)
}

func (s *BlogService) Delete(ctx context.Context, u *model.User, id string) error {
	b, err := s.store.GetBlog(ctx, id)
	if err != nil {
		return blogError(err)
	}
	if !auth.OwnsOrAdmin(u, b.Author) {
		return apperr.New(apperr.Forbidden, "Not authorized to delete this post")
	}
	if err := s.store.DeleteBlog(ctx, id); err != nil {
		return blogError(err)
	}
	return nil
}

// ToggleLike adds u to the post's likes, or removes them if already present.
func (s *BlogService) ToggleLike(ctx context.Context, u *model.User, id string) (*LikeResult, error) {
	var liked bool
	b, err := s.store.UpdateBlog(ctx, id, func(doc *model.Blog) error {
		liked = doc.ToggleLike(u.ID)
		return nil
	})
	if err != nil {
		return nil, blogError(err)
	}
	msg := "Post unliked"
	if liked {
		msg = "Post liked"
	}
	return &LikeResult{Message: msg, LikeCount: len(b.Likes), IsLiked: liked}, nil
}

func (s *BlogService) AddComment(ctx context.Context, u *model.User, id string, in CommentInput) (*CommentView, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	c := model.Comment{
		ID:         uuid.NewString(),
		Author:     u.ID,
		AuthorName: u.DisplayName(),
		Content:    in.Content,
		CreatedAt:  s.now().UTC(),
	}
	if _, err := s.store.UpdateBlog(ctx, id, func(doc *model.Blog) error {
		doc.AddComment(c)
		return nil
	}); err != nil {
		return nil, blogError(err)
	}
	return &CommentView{
		ID:         c.ID,
		Author:     u.Ref(),
		AuthorName: c.AuthorName,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
	}, nil
}

func (s *BlogService) checkDorm(ctx context.Context, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	_, err := s.store.GetDorm(ctx, *id)
	if errors.Is(err, store.ErrNotFound) {
		return errDormNotFound
	}
	return err
}

func (s *BlogService) one(ctx context.Context, b *model.Blog) (*BlogView, error) {
	views, err := s.populate(ctx, *b)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// populate resolves author, dorm, like and comment references with one
// batched lookup per collection. References to deleted users keep their id;
// references to deleted dorms become null.
func (s *BlogService) populate(ctx context.Context, blogs ...model.Blog) ([]BlogView, error) {
	userIDs := make(map[string]struct{})
	dormIDs := make(map[string]struct{})
	for _, b := range blogs {
		userIDs[b.Author] = struct{}{}
		for _, id := range b.Likes {
			userIDs[id] = struct{}{}
		}
		for _, c := range b.Comments {
			userIDs[c.Author] = struct{}{}
		}
		if b.DormID != nil {
			dormIDs[*b.DormID] = struct{}{}
		}
	}

	users, err := s.store.UsersByIDs(ctx, keys(userIDs))
	if err != nil {
		return nil, fmt.Errorf("populate users: %w", err)
	}
	dorms, err := s.store.DormNamesByIDs(ctx, keys(dormIDs))
	if err != nil {
		return nil, fmt.Errorf("populate dorms: %w", err)
	}

	ref := func(id string) model.UserRef {
		if u, ok := users[id]; ok {
			return u.Ref()
		}
		return model.UserRef{ID: id}
	}

	out := make([]BlogView, 0, len(blogs))
	for _, b := range blogs {
		v := BlogView{
			ID:            b.ID,
			Title:         b.Title,
			Content:       b.Content,
			Excerpt:       b.Excerpt,
			Author:        ref(b.Author),
			AuthorName:    b.AuthorName,
			Tags:          append([]string{}, b.Tags...),
			FeaturedImage: b.FeaturedImage,
			Published:     b.Published,
			Views:         b.Views,
			Likes:         make([]model.UserRef, 0, len(b.Likes)),
			Comments:      make([]CommentView, 0, len(b.Comments)),
			Category:      b.Category,
			LikeCount:     len(b.Likes),
			CommentCount:  len(b.Comments),
			CreatedAt:     b.CreatedAt,
			UpdatedAt:     b.UpdatedAt,
		}
		if b.DormID != nil {
			if name, ok := dorms[*b.DormID]; ok {
				v.Dorm = &model.DormRef{ID: *b.DormID, Name: name}
			}
		}
		for _, id := range b.Likes {
			r := ref(id)
			v.Likes = append(v.Likes, model.UserRef{ID: r.ID, Username: r.Username})
		}
		for _, c := range b.Comments {
			v.Comments = append(v.Comments, CommentView{
				ID:         c.ID,
				Author:     ref(c.Author),
				AuthorName: c.AuthorName,
				Content:    c.Content,
				CreatedAt:  c.CreatedAt,
			})
		}
		out = append(out, v)
	}
	return out, nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func blogError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errBlogNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return errConcurrentEdit
	}
	return err
}
