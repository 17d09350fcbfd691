package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cudorms-backend/internal/model"
)

func (s *mongoStore) CreateUser(ctx context.Context, u *model.User) error {
	if err := u.PrepareCreate(time.Now().UTC()); err != nil {
		return err
	}
	_, err := s.users.InsertOne(ctx, u)
	return translateMongo(err)
}

func (s *mongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translateMongo(err)
	}
	return &u, nil
}

func (s *mongoStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *mongoStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

func (s *mongoStore) FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": model.NormalizeEmail(email)},
	}})
}

func (s *mongoStore) UpdateUserProfile(ctx context.Context, id string, patch ProfilePatch) (*model.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.FirstName != nil {
		set["firstName"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["lastName"] = *patch.LastName
	}
	if patch.Year != nil {
		set["year"] = *patch.Year
	}
	if patch.Avatar != nil {
		set["avatar"] = *patch.Avatar
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u model.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		return nil, translateMongo(err)
	}
	return &u, nil
}

func (s *mongoStore) UpdateUserPassword(ctx context.Context, id, plain string) error {
	u := model.User{Password: plain}
	if err := u.HashPendingPassword(); err != nil {
		return err
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password":  u.PasswordHash,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoStore) UsersByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	out := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *mongoStore) ListDorms(ctx context.Context, f DormFilter) ([]model.Dorm, int64, error) {
	filter := bson.M{}
	if f.Search != "" {
		rx := containsRegex(f.Search)
		filter["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
			bson.M{"location": rx},
		}
	}
	if f.Year != "" {
		filter["availability"] = f.Year
	}
	if f.MinRating > 0 {
		filter["rating.average"] = bson.M{"$gte": f.MinRating}
	}

	sort := bson.D{{Key: "rating.average", Value: -1}, {Key: "name", Value: 1}}
	dorms, total, err := findPage[model.Dorm](ctx, s.dorms, filter, sort, f.Page)
	if err != nil {
		return nil, 0, fmt.Errorf("list dorms: %w", err)
	}
	return dorms, total, nil
}

func (s *mongoStore) GetDorm(ctx context.Context, id string) (*model.Dorm, error) {
	var d model.Dorm
	if err := s.dorms.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translateMongo(err)
	}
	return &d, nil
}

func (s *mongoStore) DormNamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1})
	cur, err := s.dorms.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID   string `bson:"_id"`
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

func (s *mongoStore) CreateDorm(ctx context.Context, d *model.Dorm) error {
	d.PrepareCreate(time.Now().UTC())
	_, err := s.dorms.InsertOne(ctx, d)
	return translateMongo(err)
}

func (s *mongoStore) UpdateDorm(ctx context.Context, id string, mutate func(*model.Dorm) error) (*model.Dorm, error) {
	return setVersioned[model.Dorm](ctx, s.dorms, id, mutate)
}

func (s *mongoStore) DeleteDorm(ctx context.Context, id string) error {
	return deleteByID(ctx, s.dorms, id)
}

func (s *mongoStore) ListBlogs(ctx context.Context, f BlogFilter) ([]model.Blog, int64, error) {
	filter := bson.M{}
	if !f.IncludeDrafts {
		filter["isPublished"] = true
	}
	if f.Author != "" {
		filter["author"] = f.Author
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Dorm != "" {
		filter["dorm"] = f.Dorm
	}
	if f.Search != "" {
		rx := containsRegex(f.Search)
		filter["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"content": rx},
			bson.M{"tags": exactRegex(f.Search)},
		}
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	blogs, total, err := findPage[model.Blog](ctx, s.blogs, filter, sort, f.Page)
	if err != nil {
		return nil, 0, fmt.Errorf("list blogs: %w", err)
	}
	return blogs, total, nil
}

func (s *mongoStore) GetBlog(ctx context.Context, id string) (*model.Blog, error) {
	var b model.Blog
	if err := s.blogs.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, translateMongo(err)
	}
	return &b, nil
}

func (s *mongoStore) CreateBlog(ctx context.Context, b *model.Blog) error {
	b.PrepareCreate(time.Now().UTC())
	_, err := s.blogs.InsertOne(ctx, b)
	return translateMongo(err)
}

func (s *mongoStore) UpdateBlog(ctx context.Context, id string, mutate func(*model.Blog) error) (*model.Blog, error) {
	return setVersioned[model.Blog](ctx, s.blogs, id, mutate, "views")
}

func (s *mongoStore) DeleteBlog(ctx context.Context, id string) error {
	return deleteByID(ctx, s.blogs, id)
}

func (s *mongoStore) IncrementBlogViews(ctx context.Context, id string) error {
	res, err := s.blogs.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
