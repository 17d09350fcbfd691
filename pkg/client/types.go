package client

import "time"

type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role"`
	Year       string `json:"year,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	IsVerified bool   `json:"isVerified"`
}

type UserRef struct {
	ID        string `json:"_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type DormRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Address struct {
	Street      string    `json:"street,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

type Amenities struct {
	Laundry     bool     `json:"laundry"`
	Kitchen     bool     `json:"kitchen"`
	AC          bool     `json:"ac"`
	Wifi        bool     `json:"wifi"`
	Parking     bool     `json:"parking"`
	Gym         bool     `json:"gym"`
	StudyRoom   bool     `json:"studyRoom"`
	Elevator    bool     `json:"elevator"`
	PetFriendly bool     `json:"petFriendly"`
	Other       []string `json:"other"`
}

type RoomType struct {
	Type         string  `json:"type"`
	Price        float64 `json:"price"`
	Availability int     `json:"availability"`
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Review struct {
	ID        string    `json:"_id"`
	User      string    `json:"user"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

type Policies struct {
	QuietHours  string   `json:"quietHours,omitempty"`
	GuestPolicy string   `json:"guestPolicy,omitempty"`
	PetPolicy   string   `json:"petPolicy,omitempty"`
	Other       []string `json:"other"`
}

type Dorm struct {
	ID           string     `json:"_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
	Address      Address    `json:"address"`
	Images       []string   `json:"images"`
	Amenities    Amenities  `json:"amenities"`
	Capacity     *int       `json:"capacity,omitempty"`
	RoomTypes    []RoomType `json:"roomTypes"`
	Rating       Rating     `json:"rating"`
	Reviews      []Review   `json:"reviews"`
	Availability []string   `json:"availability"`
	Contact      Contact    `json:"contact"`
	Policies     Policies   `json:"policies"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Comment struct {
	ID         string    `json:"_id"`
	Author     UserRef   `json:"author"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Blog struct {
	ID            string    `json:"_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	Author        UserRef   `json:"author"`
	AuthorName    string    `json:"authorName"`
	Dorm          *DormRef  `json:"dorm"`
	Tags          []string  `json:"tags"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
	IsPublished   bool      `json:"isPublished"`
	Views         int       `json:"views"`
	Likes         []UserRef `json:"likes"`
	Comments      []Comment `json:"comments"`
	Category      string    `json:"category"`
	LikeCount     int       `json:"likeCount"`
	CommentCount  int       `json:"commentCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

type DormPage struct {
	Dorms      []Dorm     `json:"dorms"`
	Pagination Pagination `json:"pagination"`
}

type BlogPage struct {
	Blogs      []Blog     `json:"blogs"`
	Pagination Pagination `json:"pagination"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Year      string `json:"year,omitempty"`
}

type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// ProfileUpdate carries only the profile fields to change.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Year      *string `json:"year,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

type ReviewResponse struct {
	Message          string  `json:"message"`
	Review           Review  `json:"review"`
	NewAverageRating float64 `json:"newAverageRating"`
}

// BlogRequest is the body of a create or update. Nil optional fields are
// omitted so the server leaves them unchanged.
type BlogRequest struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       *string   `json:"excerpt,omitempty"`
	Dorm          *string   `json:"dorm,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	FeaturedImage *string   `json:"featuredImage,omitempty"`
	IsPublished   *bool     `json:"isPublished,omitempty"`
}

type LikeResponse struct {
	Message   string `json:"message"`
	LikeCount int    `json:"likeCount"`
	IsLiked   bool   `json:"isLiked"`
}

// DormQuery filters a dorm listing; zero values are not sent.
type DormQuery struct {
	Page      int
	Limit     int
	Search    string
	Year      string
	MinRating float64
}

// BlogQuery filters a blog listing; zero values are not sent.
type BlogQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Dorm     string
}
