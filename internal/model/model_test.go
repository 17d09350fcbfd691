package model

import (
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDorm_AddReviewRecomputesRating(t *testing.T) {
	d := NewDorm()
	ratings := []int{5, 3, 4, 1}
	sum := 0
	for i, r := range ratings {
		d.AddReview(Review{ID: string(rune('a' + i)), User: string(rune('u' + i)), Rating: r})
		sum += r
		assert.Equal(t, i+1, d.Rating.Count)
		assert.InDelta(t, float64(sum)/float64(i+1), d.Rating.Average, 1e-9)
	}
	assert.Len(t, d.Reviews, len(ratings))
}

func TestDorm_HasReviewBy(t *testing.T) {
	d := NewDorm()
	assert.False(t, d.HasReviewBy("u1"))
	d.AddReview(Review{User: "u1", Rating: 4})
	assert.True(t, d.HasReviewBy("u1"))
	assert.False(t, d.HasReviewBy("u2"))
}

func TestNewDorm_Defaults(t *testing.T) {
	d := NewDorm()
	assert.True(t, d.Amenities.Wifi)
	assert.False(t, d.Amenities.Laundry)
	assert.NotNil(t, d.Images)
	assert.NotNil(t, d.Reviews)
	assert.Equal(t, 0, d.Rating.Count)
}

func TestDorm_Validate(t *testing.T) {
	zero := 0
	two := 2
	testCases := []struct {
		name      string
		mutate    func(d *Dorm)
		errFields []string
	}{
		{name: "valid", mutate: func(d *Dorm) {}},
		{name: "missing name", mutate: func(d *Dorm) { d.Name = "" }, errFields: []string{"name"}},
		{name: "long name", mutate: func(d *Dorm) { d.Name = strings.Repeat("x", 101) }, errFields: []string{"name"}},
		{name: "long description", mutate: func(d *Dorm) { d.Description = strings.Repeat("x", 1001) }, errFields: []string{"description"}},
		{name: "zero capacity", mutate: func(d *Dorm) { d.Capacity = &zero }, errFields: []string{"capacity"}},
		{name: "positive capacity", mutate: func(d *Dorm) { d.Capacity = &two }},
		{
			name:      "one coordinate",
			mutate:    func(d *Dorm) { d.Address.Coordinates = datatypes.JSONSlice[float64]{-76.48} },
			errFields: []string{"address"},
		},
		{
			name:   "two coordinates",
			mutate: func(d *Dorm) { d.Address.Coordinates = datatypes.JSONSlice[float64]{-76.48, 42.45} },
		},
		{
			name: "bad room type",
			mutate: func(d *Dorm) {
				d.RoomTypes = datatypes.JSONSlice[RoomType]{{Type: "castle", Price: -1}}
			},
			errFields: []string{"roomTypes"},
		},
		{
			name:      "bad availability year",
			mutate:    func(d *Dorm) { d.Availability = datatypes.JSONSlice[Year]{YearJunior, "alumni"} },
			errFields: []string{"availability"},
		},
		{
			name:      "several failures reported together",
			mutate:    func(d *Dorm) { d.Name = ""; d.Location = strings.Repeat("y", 101) },
			errFields: []string{"name", "location"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDorm()
			d.Name = "Mews Hall"
			tc.mutate(&d)

			err := d.Validate()
			if len(tc.errFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errs, ok := err.(validation.Errors)
			require.True(t, ok, "expected validation.Errors, got %T", err)
			for _, f := range tc.errFields {
				assert.Contains(t, errs, f)
			}
			assert.Len(t, errs, len(tc.errFields))
		})
	}
}

func TestDeriveExcerpt(t *testing.T) {
	short := "A short post."
	assert.Equal(t, short, DeriveExcerpt(short))

	exact := strings.Repeat("a", ExcerptLength)
	assert.Equal(t, exact, DeriveExcerpt(exact))

	long := strings.Repeat("b", ExcerptLength+50)
	got := DeriveExcerpt(long)
	assert.Equal(t, strings.Repeat("b", ExcerptLength)+"...", got)

	multiByte := strings.Repeat("é", ExcerptLength+1)
	assert.Equal(t, strings.Repeat("é", ExcerptLength)+"...", DeriveExcerpt(multiByte))
}

func TestBlog_ToggleLike(t *testing.T) {
	b := Blog{}
	b.Normalize()

	assert.True(t, b.ToggleLike("u1"))
	assert.Equal(t, []string{"u1"}, []string(b.Likes))
	assert.True(t, b.ToggleLike("u2"))
	assert.True(t, b.IsLikedBy("u2"))

	assert.False(t, b.ToggleLike("u1"))
	assert.Equal(t, []string{"u2"}, []string(b.Likes))
	assert.False(t, b.ToggleLike("u2"))
	assert.Empty(t, b.Likes)
}

func TestUser_PasswordHashing(t *testing.T) {
	u := User{Username: "jdoe", Email: "  JDoe@Cornell.EDU ", Password: "hunter22"}
	require.NoError(t, u.PrepareCreate(time.Now()))

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, RoleStudent, u.Role)
	assert.Equal(t, "jdoe@cornell.edu", u.Email)
	assert.Empty(t, u.Password)
	assert.NotEqual(t, "hunter22", u.PasswordHash)
	assert.True(t, u.CheckPassword("hunter22"))
	assert.False(t, u.CheckPassword("hunter23"))
}

func TestUser_DisplayName(t *testing.T) {
	u := User{FirstName: "Ezra", LastName: "Cornell"}
	assert.Equal(t, "Ezra Cornell", u.DisplayName())
	assert.Equal(t, UserRef{ID: "", Username: "", FirstName: "Ezra", LastName: "Cornell"}, u.Ref())
}
