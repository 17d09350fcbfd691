package store

import (
	"context"
	"fmt"

	"cudorms-backend/internal/model"
)

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *gormStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *gormStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", model.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *gormStore) FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, model.NormalizeEmail(email)).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *gormStore) UpdateUserProfile(ctx context.Context, id string, patch ProfilePatch) (*model.User, error) {
	if !patch.Empty() {
		updates := make(map[string]interface{}, 4)
		if patch.FirstName != nil {
			updates["first_name"] = *patch.FirstName
		}
		if patch.LastName != nil {
			updates["last_name"] = *patch.LastName
		}
		if patch.Year != nil {
			updates["year"] = *patch.Year
		}
		if patch.Avatar != nil {
			updates["avatar"] = *patch.Avatar
		}

		res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("update profile %s: %w", id, translate(res.Error))
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.FindUserByID(ctx, id)
}

func (s *gormStore) UpdateUserPassword(ctx context.Context, id, plain string) error {
	u := model.User{Password: plain}
	if err := u.HashPendingPassword(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password", u.PasswordHash)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) UsersByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	out := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
