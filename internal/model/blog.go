package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryGeneral      Category = "general"
	CategoryDormSpecific Category = "dorm-specific"
	CategoryReview       Category = "review"
	CategoryTips         Category = "tips"
	CategoryNews         Category = "news"
)

// CategoryValues lists every accepted Category, typed for ozzo's In rule.
var CategoryValues = []interface{}{CategoryGeneral, CategoryDormSpecific, CategoryReview, CategoryTips, CategoryNews}

// ExcerptLength is the number of characters kept when deriving an excerpt.
const ExcerptLength = 300

type Comment struct {
	ID         string    `json:"_id" bson:"_id"`
	Author     string    `json:"author" bson:"author"`
	AuthorName string    `json:"authorName" bson:"authorName"`
	Content    string    `json:"content" bson:"content"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Blog is a post, optionally tied to a dorm. Likes is a set of user ids.
type Blog struct {
	ID            string                       `gorm:"primaryKey;size:36" json:"_id" bson:"_id"`
	Title         string                       `gorm:"size:200;not null" json:"title" bson:"title"`
	Content       string                       `gorm:"type:text;not null" json:"content" bson:"content"`
	Excerpt       string                       `gorm:"type:text" json:"excerpt" bson:"excerpt"`
	Author        string                       `gorm:"size:36;not null;index" json:"author" bson:"author"`
	AuthorName    string                       `gorm:"size:101" json:"authorName" bson:"authorName"`
	DormID        *string                      `gorm:"size:36;index" json:"dorm" bson:"dorm"`
	Tags          datatypes.JSONSlice[string]  `json:"tags" bson:"tags"`
	FeaturedImage string                       `gorm:"size:512" json:"featuredImage,omitempty" bson:"featuredImage,omitempty"`
	Published     bool                         `gorm:"index" json:"isPublished" bson:"isPublished"`
	Views         int                          `gorm:"not null" json:"views" bson:"views"`
	Likes         datatypes.JSONSlice[string]  `json:"likes" bson:"likes"`
	Comments      datatypes.JSONSlice[Comment] `json:"comments" bson:"comments"`
	Category      Category                     `gorm:"size:20;not null;index" json:"category" bson:"category"`
	Version       int                          `gorm:"not null" json:"-" bson:"version"`
	CreatedAt     time.Time                    `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time                    `json:"updatedAt" bson:"updatedAt"`
}

// DeriveExcerpt returns content unchanged when it fits in ExcerptLength
// characters, otherwise its first ExcerptLength characters followed by "...".
func DeriveExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= ExcerptLength {
		return content
	}
	return string(runes[:ExcerptLength]) + "..."
}

func (b *Blog) Normalize() {
	if b.Tags == nil {
		b.Tags = datatypes.JSONSlice[string]{}
	}
	if b.Likes == nil {
		b.Likes = datatypes.JSONSlice[string]{}
	}
	if b.Comments == nil {
		b.Comments = datatypes.JSONSlice[Comment]{}
	}
	if b.Category == "" {
		b.Category = CategoryGeneral
	}
}

func (b *Blog) IsLikedBy(userID string) bool {
	for _, id := range b.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// ToggleLike flips userID's membership in Likes and reports whether the
// user likes the post afterwards.
func (b *Blog) ToggleLike(userID string) bool {
	for i, id := range b.Likes {
		if id == userID {
			likes := make(datatypes.JSONSlice[string], 0, len(b.Likes)-1)
			likes = append(likes, b.Likes[:i]...)
			b.Likes = append(likes, b.Likes[i+1:]...)
			return false
		}
	}
	b.Likes = append(b.Likes, userID)
	return true
}

func (b *Blog) AddComment(c Comment) {
	b.Comments = append(b.Comments, c)
}

func (b *Blog) PrepareCreate(now time.Time) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Version = 1
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.Normalize()
}

func (b *Blog) DocVersion() int { return b.Version }

func (b *Blog) NextVersion(now time.Time) {
	b.Normalize()
	b.Version++
	b.UpdatedAt = now
}

func (b *Blog) BeforeCreate(*gorm.DB) error {
	b.PrepareCreate(time.Now())
	return nil
}
