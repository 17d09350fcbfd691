package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoomKind is the layout of a room offering.
type RoomKind string

const (
	RoomSingle    RoomKind = "single"
	RoomDouble    RoomKind = "double"
	RoomTriple    RoomKind = "triple"
	RoomQuad      RoomKind = "quad"
	RoomSuite     RoomKind = "suite"
	RoomApartment RoomKind = "apartment"
)

var roomKindValues = []interface{}{RoomSingle, RoomDouble, RoomTriple, RoomQuad, RoomSuite, RoomApartment}

// Address is a street address with an optional [longitude, latitude] pair.
type Address struct {
	Street      string                       `gorm:"size:255" json:"street,omitempty" bson:"street,omitempty"`
	Coordinates datatypes.JSONSlice[float64] `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

func (a Address) Validate() error {
	if n := len(a.Coordinates); n != 0 && n != 2 {
		return validation.Errors{
			"coordinates": errors.New("must contain exactly 2 numbers [longitude, latitude]"),
		}
	}
	return nil
}

type Amenities struct {
	Laundry     bool                        `json:"laundry" bson:"laundry"`
	Kitchen     bool                        `json:"kitchen" bson:"kitchen"`
	AC          bool                        `json:"ac" bson:"ac"`
	Wifi        bool                        `json:"wifi" bson:"wifi"`
	Parking     bool                        `json:"parking" bson:"parking"`
	Gym         bool                        `json:"gym" bson:"gym"`
	StudyRoom   bool                        `json:"studyRoom" bson:"studyRoom"`
	Elevator    bool                        `json:"elevator" bson:"elevator"`
	PetFriendly bool                        `json:"petFriendly" bson:"petFriendly"`
	Other       datatypes.JSONSlice[string] `json:"other" bson:"other"`
}

type RoomType struct {
	Type         RoomKind `json:"type" bson:"type"`
	Price        float64  `json:"price" bson:"price"`
	Availability int      `json:"availability" bson:"availability"`
}

func (r RoomType) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(roomKindValues...).Error("must be one of single, double, triple, quad, suite, apartment")),
		validation.Field(&r.Price, validation.By(nonNegative)),
		validation.Field(&r.Availability, validation.By(nonNegative)),
	)
}

// Rating is the aggregate derived from a dorm's reviews.
type Rating struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}

type Review struct {
	ID        string    `json:"_id" bson:"_id"`
	User      string    `json:"user" bson:"user"`
	UserName  string    `json:"userName" bson:"userName"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type Contact struct {
	Phone   string `gorm:"size:64" json:"phone,omitempty" bson:"phone,omitempty"`
	Email   string `gorm:"size:255" json:"email,omitempty" bson:"email,omitempty"`
	Website string `gorm:"size:512" json:"website,omitempty" bson:"website,omitempty"`
}

type Policies struct {
	QuietHours  string                      `json:"quietHours,omitempty" bson:"quietHours,omitempty"`
	GuestPolicy string                      `json:"guestPolicy,omitempty" bson:"guestPolicy,omitempty"`
	PetPolicy   string                      `json:"petPolicy,omitempty" bson:"petPolicy,omitempty"`
	Other       datatypes.JSONSlice[string] `json:"other" bson:"other"`
}

// Dorm is a residence hall document. Reviews are embedded and Rating is
// always recomputed from them; Version guards read-modify-write cycles.
type Dorm struct {
	ID           string                        `gorm:"primaryKey;size:36" json:"_id" bson:"_id"`
	Name         string                        `gorm:"size:100;not null;index" json:"name" bson:"name"`
	Description  string                        `gorm:"size:1000" json:"description,omitempty" bson:"description,omitempty"`
	Location     string                        `gorm:"size:100" json:"location,omitempty" bson:"location,omitempty"`
	Address      Address                       `gorm:"embedded;embeddedPrefix:address_" json:"address" bson:"address"`
	Images       datatypes.JSONSlice[string]   `json:"images" bson:"images"`
	Amenities    Amenities                     `gorm:"embedded;embeddedPrefix:amenities_" json:"amenities" bson:"amenities"`
	Capacity     *int                          `json:"capacity,omitempty" bson:"capacity,omitempty"`
	RoomTypes    datatypes.JSONSlice[RoomType] `json:"roomTypes" bson:"roomTypes"`
	Rating       Rating                        `gorm:"embedded;embeddedPrefix:rating_" json:"rating" bson:"rating"`
	Reviews      datatypes.JSONSlice[Review]   `json:"reviews" bson:"reviews"`
	Availability datatypes.JSONSlice[Year]     `json:"availability" bson:"availability"`
	Contact      Contact                       `gorm:"embedded;embeddedPrefix:contact_" json:"contact" bson:"contact"`
	Policies     Policies                      `gorm:"embedded;embeddedPrefix:policies_" json:"policies" bson:"policies"`
	Version      int                           `gorm:"not null" json:"-" bson:"version"`
	CreatedAt    time.Time                     `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time                     `json:"updatedAt" bson:"updatedAt"`
}

// DormRef is the populated form of a dorm reference.
type DormRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// NewDorm returns a dorm carrying the schema defaults.
func NewDorm() Dorm {
	d := Dorm{Amenities: Amenities{Wifi: true}}
	d.Normalize()
	return d
}

// Normalize replaces nil lists with empty ones so they persist as [] rather than null.
func (d *Dorm) Normalize() {
	if d.Images == nil {
		d.Images = datatypes.JSONSlice[string]{}
	}
	if d.Amenities.Other == nil {
		d.Amenities.Other = datatypes.JSONSlice[string]{}
	}
	if d.RoomTypes == nil {
		d.RoomTypes = datatypes.JSONSlice[RoomType]{}
	}
	if d.Reviews == nil {
		d.Reviews = datatypes.JSONSlice[Review]{}
	}
	if d.Availability == nil {
		d.Availability = datatypes.JSONSlice[Year]{}
	}
	if d.Policies.Other == nil {
		d.Policies.Other = datatypes.JSONSlice[string]{}
	}
}

func (d Dorm) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required.Error("Name is required"), validation.RuneLength(1, 100).Error("Name must be between 1 and 100 characters")),
		validation.Field(&d.Description, validation.RuneLength(0, 1000).Error("Description must be less than 1000 characters")),
		validation.Field(&d.Location, validation.RuneLength(0, 100).Error("Location must be less than 100 characters")),
		validation.Field(&d.Address),
		validation.Field(&d.Capacity, validation.By(func(v interface{}) error {
			if c, _ := v.(*int); c != nil && *c < 1 {
				return errors.New("Capacity must be a positive integer")
			}
			return nil
		})),
		validation.Field(&d.RoomTypes),
		validation.Field(&d.Availability, validation.Each(validation.In(YearValues...).Error("Invalid year selection"))),
	)
}

func (d *Dorm) Ref() DormRef {
	return DormRef{ID: d.ID, Name: d.Name}
}

func (d *Dorm) HasReviewBy(userID string) bool {
	for _, r := range d.Reviews {
		if r.User == userID {
			return true
		}
	}
	return false
}

// AddReview appends r and recomputes the aggregate rating.
func (d *Dorm) AddReview(r Review) {
	d.Reviews = append(d.Reviews, r)
	d.recomputeRating()
}

func (d *Dorm) recomputeRating() {
	if len(d.Reviews) == 0 {
		d.Rating = Rating{}
		return
	}
	sum := decimal.Zero
	for _, r := range d.Reviews {
		sum = sum.Add(decimal.NewFromInt(int64(r.Rating)))
	}
	n := decimal.NewFromInt(int64(len(d.Reviews)))
	d.Rating = Rating{
		Average: sum.Div(n).InexactFloat64(),
		Count:   len(d.Reviews),
	}
}

// PrepareCreate fills identity, version and timestamps for a new dorm.
func (d *Dorm) PrepareCreate(now time.Time) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Version = 1
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	d.Normalize()
}

func (d *Dorm) DocVersion() int { return d.Version }

func (d *Dorm) NextVersion(now time.Time) {
	d.Normalize()
	d.Version++
	d.UpdatedAt = now
}

func (d *Dorm) BeforeCreate(*gorm.DB) error {
	d.PrepareCreate(time.Now())
	return nil
}

func nonNegative(v interface{}) error {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return errors.New("must be no less than 0")
		}
	case float64:
		if n < 0 {
			return errors.New("must be no less than 0")
		}
	}
	return nil
}
