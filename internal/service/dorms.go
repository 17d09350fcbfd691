package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/store"
)

var (
	errDormNotFound   = apperr.New(apperr.NotFound, "Dorm not found")
	errConcurrentEdit = apperr.New(apperr.Conflict, "Document was modified concurrently, please retry")
)

type DormList struct {
	Dorms      []model.Dorm `json:"dorms"`
	Pagination Pagination   `json:"pagination"`
}

// dormFields are the dorm attributes a client may set. A request body is
// decoded onto a copy of the stored values, so only keys present in the
// body change; nested objects merge key by key and arrays are replaced.
type dormFields struct {
	Name         string                              `json:"name"`
	Description  string                              `json:"description"`
	Location     string                              `json:"location"`
	Address      model.Address                       `json:"address"`
	Images       datatypes.JSONSlice[string]         `json:"images"`
	Amenities    model.Amenities                     `json:"amenities"`
	Capacity     *int                                `json:"capacity"`
	RoomTypes    datatypes.JSONSlice[model.RoomType] `json:"roomTypes"`
	Availability datatypes.JSONSlice[model.Year]     `json:"availability"`
	Contact      model.Contact                       `json:"contact"`
	Policies     model.Policies                      `json:"policies"`
}

func fieldsOf(d *model.Dorm) dormFields {
	return dormFields{
		Name:         d.Name,
		Description:  d.Description,
		Location:     d.Location,
		Address:      d.Address,
		Images:       d.Images,
		Amenities:    d.Amenities,
		Capacity:     d.Capacity,
		RoomTypes:    d.RoomTypes,
		Availability: d.Availability,
		Contact:      d.Contact,
		Policies:     d.Policies,
	}
}

func (f dormFields) applyTo(d *model.Dorm) {
	d.Name = strings.TrimSpace(f.Name)
	d.Description = strings.TrimSpace(f.Description)
	d.Location = strings.TrimSpace(f.Location)
	d.Address = f.Address
	d.Images = f.Images
	d.Amenities = f.Amenities
	d.Capacity = f.Capacity
	d.RoomTypes = f.RoomTypes
	d.Availability = f.Availability
	d.Contact = f.Contact
	d.Policies = f.Policies
	d.Normalize()
}

// mergeDorm decodes body over the editable fields of d and validates the result.
func mergeDorm(d *model.Dorm, body []byte) error {
	f := fieldsOf(d)
	// Fresh slices keep the decoder from writing into d's backing arrays.
	f.Images = append(datatypes.JSONSlice[string]{}, f.Images...)
	f.RoomTypes = append(datatypes.JSONSlice[model.RoomType]{}, f.RoomTypes...)
	f.Availability = append(datatypes.JSONSlice[model.Year]{}, f.Availability...)
	f.Amenities.Other = append(datatypes.JSONSlice[string]{}, f.Amenities.Other...)
	f.Policies.Other = append(datatypes.JSONSlice[string]{}, f.Policies.Other...)

	if err := decodeBody(body, &f); err != nil {
		return err
	}
	f.applyTo(d)
	return apperr.FromValidation(d.Validate())
}

// decodeBody unmarshals a JSON object, turning syntax and type errors into
// client errors.
func decodeBody(body []byte, dst interface{}) error {
	if !strings.HasPrefix(strings.TrimSpace(string(body)), "{") {
		return apperr.New(apperr.Validation, "Request body must be a JSON object")
	}
	return apperr.FromDecode(json.Unmarshal(body, dst))
}

// DormService manages dorms and their embedded reviews.
type DormService struct {
	store store.Store
	now   func() time.Time
}

func NewDormService(s store.Store) *DormService {
	return &DormService{store: s, now: time.Now}
}

func (s *DormService) List(ctx context.Context, f store.DormFilter) (*DormList, error) {
	dorms, total, err := s.store.ListDorms(ctx, f)
	if err != nil {
		return nil, err
	}
	if dorms == nil {
		dorms = []model.Dorm{}
	}
	return &DormList{Dorms: dorms, Pagination: NewPagination(f.Page, total)}, nil
}

func (s *DormService) Get(ctx context.Context, id string) (*model.Dorm, error) {
	d, err := s.store.GetDorm(ctx, id)
	if err != nil {
		return nil, dormError(err)
	}
	return d, nil
}

func (s *DormService) Create(ctx context.Context, body []byte) (*model.Dorm, error) {
	d := model.NewDorm()
	if err := mergeDorm(&d, body); err != nil {
		return nil, err
	}
	if err := s.store.CreateDorm(ctx, &d); err != nil {
		return nil, fmt.Errorf("create dorm: %w", err)
	}
	return &d, nil
}

func (s *DormService) Update(ctx context.Context, id string, body []byte) (*model.Dorm, error) {
	if !json.Valid(body) {
		return nil, apperr.New(apperr.Validation, "Request body must be valid JSON")
	}
	d, err := s.store.UpdateDorm(ctx, id, func(doc *model.Dorm) error {
		return mergeDorm(doc, body)
	})
	if err != nil {
		return nil, dormError(err)
	}
	return d, nil
}

func (s *DormService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDorm(ctx, id); err != nil {
		return dormError(err)
	}
	return nil
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (in ReviewInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Rating,
			validation.Required.Error("Rating must be an integer between 1 and 5"),
			validation.Min(1).Error("Rating must be an integer between 1 and 5"),
			validation.Max(5).Error("Rating must be an integer between 1 and 5")),
		validation.Field(&in.Comment, validation.RuneLength(0, 500).Error("Comment must be less than 500 characters")),
	)
}

type ReviewResult struct {
	Message          string       `json:"message"`
	Review           model.Review `json:"review"`
	NewAverageRating float64      `json:"newAverageRating"`
}

// AddReview appends a review by u and recomputes the dorm's rating. A user
// may review each dorm once.
func (s *DormService) AddReview(ctx context.Context, dormID string, u *model.User, in ReviewInput) (*ReviewResult, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	review := model.Review{
		ID:        uuid.NewString(),
		User:      u.ID,
		UserName:  u.DisplayName(),
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: s.now().UTC(),
	}
	d, err := s.store.UpdateDorm(ctx, dormID, func(doc *model.Dorm) error {
		if doc.HasReviewBy(u.ID) {
			return apperr.New(apperr.Conflict, "You have already reviewed this dorm")
		}
		doc.AddReview(review)
		return nil
	})
	if err != nil {
		return nil, dormError(err)
	}
	return &ReviewResult{
		Message:          "Review added successfully",
		Review:           review,
		NewAverageRating: d.Rating.Average,
	}, nil
}

func dormError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errDormNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return errConcurrentEdit
	}
	return err
}
