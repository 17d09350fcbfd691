package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"cudorms-backend/internal/model"
)

func (s *gormStore) blogQuery(ctx context.Context, f BlogFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.Blog{})
	if !f.IncludeDrafts {
		q = q.Where("published = ?", true)
	}
	if f.Author != "" {
		q = q.Where("author = ?", f.Author)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Dorm != "" {
		q = q.Where("dorm_id = ?", f.Dorm)
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\' OR LOWER(CAST(tags AS TEXT)) LIKE ? ESCAPE '\')`,
			p, p, elementPattern(f.Search))
	}
	return q
}

// ListBlogs returns one page of posts, newest first, and the total match count.
func (s *gormStore) ListBlogs(ctx context.Context, f BlogFilter) ([]model.Blog, int64, error) {
	var total int64
	if err := s.blogQuery(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count blogs: %w", err)
	}

	blogs := []model.Blog{}
	err := s.blogQuery(ctx, f).
		Order("created_at DESC").
		Offset(f.Offset()).Limit(f.Limit).
		Find(&blogs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}
	return blogs, total, nil
}

func (s *gormStore) GetBlog(ctx context.Context, id string) (*model.Blog, error) {
	var b model.Blog
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *gormStore) CreateBlog(ctx context.Context, b *model.Blog) error {
	return translate(s.db.WithContext(ctx).Create(b).Error)
}

func (s *gormStore) UpdateBlog(ctx context.Context, id string, mutate func(*model.Blog) error) (*model.Blog, error) {
	return updateVersioned[model.Blog](ctx, s.db, id, mutate, "views")
}

func (s *gormStore) DeleteBlog(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Blog{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementBlogViews bumps the view counter in a single statement.
func (s *gormStore) IncrementBlogViews(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.Blog{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
