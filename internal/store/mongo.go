package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"cudorms-backend/internal/model"
)

// mongoStore implements the Store interface on MongoDB collections
// "users", "dorms" and "blogs". Documents use string UUID _ids.
type mongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	dorms  *mongo.Collection
	blogs  *mongo.Collection
}

// NewMongoStore wraps an open database and ensures its indexes exist.
func NewMongoStore(ctx context.Context, db *mongo.Database) (Store, error) {
	s := &mongoStore{
		client: db.Client(),
		users:  db.Collection("users"),
		dorms:  db.Collection("dorms"),
		blogs:  db.Collection("blogs"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	}); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	if _, err := s.dorms.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "rating.average", Value: -1}, {Key: "name", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create dorm indexes: %w", err)
	}
	if _, err := s.blogs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "isPublished", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "dorm", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create blog indexes: %w", err)
	}
	return nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// containsRegex matches term anywhere, case-insensitively, with regex
// metacharacters taken literally.
func containsRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

func exactRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(term) + "$", Options: "i"}
}

func findPage[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D, p Page) ([]T, int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(sort).SetSkip(int64(p.Offset())).SetLimit(int64(p.Limit))
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// setVersioned is the MongoDB counterpart of updateVersioned: the $set only
// matches while the stored version is the one that was read. Fields named in
// counters are left to their atomic $inc updates.
func setVersioned[T any, P interface {
	*T
	model.Versioned
}](ctx context.Context, coll *mongo.Collection, id string, mutate func(P) error, counters ...string) (P, error) {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		doc := P(new(T))
		if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(doc); err != nil {
			return nil, translateMongo(err)
		}

		version := doc.DocVersion()
		if err := mutate(doc); err != nil {
			return nil, err
		}
		doc.NextVersion(time.Now().UTC())

		fields, err := setFields(doc, counters)
		if err != nil {
			return nil, err
		}
		res, err := coll.UpdateOne(ctx, bson.M{"_id": id, "version": version}, bson.M{"$set": fields})
		if err != nil {
			return nil, translateMongo(err)
		}
		if res.MatchedCount == 1 {
			return doc, nil
		}
	}
	return nil, ErrVersionConflict
}

// setFields encodes doc into a $set document without its _id and counters.
func setFields(doc interface{}, counters []string) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	fields := bson.M{}
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	delete(fields, "_id")
	for _, f := range counters {
		delete(fields, f)
	}
	return fields, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateMongo(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
