package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"cudorms-backend/internal/model"
)

func (s *gormStore) dormQuery(ctx context.Context, f DormFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.Dorm{})
	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\')`, p, p, p)
	}
	if f.Year != "" {
		q = q.Where(`LOWER(CAST(availability AS TEXT)) LIKE ? ESCAPE '\'`, elementPattern(string(f.Year)))
	}
	if f.MinRating > 0 {
		q = q.Where("rating_average >= ?", f.MinRating)
	}
	return q
}

// ListDorms returns one page of dorms, best rated first, and the total match count.
func (s *gormStore) ListDorms(ctx context.Context, f DormFilter) ([]model.Dorm, int64, error) {
	var total int64
	if err := s.dormQuery(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count dorms: %w", err)
	}

	dorms := []model.Dorm{}
	err := s.dormQuery(ctx, f).
		Order("rating_average DESC").Order("name ASC").
		Offset(f.Offset()).Limit(f.Limit).
		Find(&dorms).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list dorms: %w", err)
	}
	return dorms, total, nil
}

func (s *gormStore) GetDorm(ctx context.Context, id string) (*model.Dorm, error) {
	var d model.Dorm
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *gormStore) DormNamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID   string
		Name string
	}
	if err := s.db.WithContext(ctx).Model(&model.Dorm{}).Select("id", "name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

func (s *gormStore) CreateDorm(ctx context.Context, d *model.Dorm) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

func (s *gormStore) UpdateDorm(ctx context.Context, id string, mutate func(*model.Dorm) error) (*model.Dorm, error) {
	return updateVersioned[model.Dorm](ctx, s.db, id, mutate)
}

func (s *gormStore) DeleteDorm(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Dorm{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
