package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"cudorms-backend/internal/model"
)

var (
	ErrNotFound  = errors.New("store: document not found")
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrVersionConflict is returned when a document kept changing under an
	// update for MaxUpdateAttempts consecutive tries.
	ErrVersionConflict = errors.New("store: document was modified concurrently")
)

// MaxUpdateAttempts bounds the optimistic read-modify-write loop.
const MaxUpdateAttempts = 5

// Store defines the interface for all persistence operations.
//
// UpdateDorm and UpdateBlog load the document, run mutate on it and write it
// back only if nobody else wrote it in between; otherwise they reload and run
// mutate again. mutate must therefore only depend on the document it is
// given. An error returned by mutate aborts the update unchanged.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id string, patch ProfilePatch) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id, plain string) error
	UsersByIDs(ctx context.Context, ids []string) (map[string]model.User, error)

	ListDorms(ctx context.Context, f DormFilter) ([]model.Dorm, int64, error)
	GetDorm(ctx context.Context, id string) (*model.Dorm, error)
	DormNamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
	CreateDorm(ctx context.Context, d *model.Dorm) error
	UpdateDorm(ctx context.Context, id string, mutate func(*model.Dorm) error) (*model.Dorm, error)
	DeleteDorm(ctx context.Context, id string) error

	ListBlogs(ctx context.Context, f BlogFilter) ([]model.Blog, int64, error)
	GetBlog(ctx context.Context, id string) (*model.Blog, error)
	CreateBlog(ctx context.Context, b *model.Blog) error
	UpdateBlog(ctx context.Context, id string, mutate func(*model.Blog) error) (*model.Blog, error)
	DeleteBlog(ctx context.Context, id string) error
	IncrementBlogViews(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store. The connection should be
// opened with TranslateError so unique violations surface as ErrDuplicate.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching term anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// elementPattern builds a LIKE pattern matching term as a whole element of a
// JSON string array rendered as text.
func elementPattern(term string) string {
	quoted, _ := json.Marshal(strings.ToLower(term))
	return "%" + likeEscaper.Replace(string(quoted)) + "%"
}
