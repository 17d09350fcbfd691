package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/parse"
	"cudorms-backend/internal/service"
	"cudorms-backend/internal/store"
)

// pageOf reads the page and limit query parameters shared by every listing.
func pageOf(q *parse.Query) store.Page {
	return store.Page{
		Number: q.Int("page", 1, 1, math.MaxInt32, "Page must be a positive integer"),
		Limit:  q.Int("limit", 10, 1, 50, "Limit must be between 1 and 50"),
	}
}

// ListDorms handles GET /api/dorms
func (h *Handler) ListDorms(c *gin.Context) {
	q := parse.NewQuery(c.Request.URL.Query())
	f := store.DormFilter{
		Page:      pageOf(q),
		Search:    q.Text("search", 100, "Search term too long"),
		Year:      model.Year(q.Enum("year", model.YearValues, "Invalid year selection")),
		MinRating: q.Float("minRating", 1, 5, "Minimum rating must be between 1 and 5"),
	}
	if err := q.Err(); err != nil {
		apperr.Respond(c, err)
		return
	}

	res, err := h.dorms.List(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetDorm handles GET /api/dorms/:id
func (h *Handler) GetDorm(c *gin.Context) {
	d, err := h.dorms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDorm handles POST /api/dorms
func (h *Handler) CreateDorm(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		apperr.Respond(c, apperr.FromDecode(err))
		return
	}
	d, err := h.dorms.Create(c.Request.Context(), body)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Dorm created successfully", "dorm": d})
}

// UpdateDorm handles PUT /api/dorms/:id
func (h *Handler) UpdateDorm(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		apperr.Respond(c, apperr.FromDecode(err))
		return
	}
	d, err := h.dorms.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dorm updated successfully", "dorm": d})
}

// DeleteDorm handles DELETE /api/dorms/:id
func (h *Handler) DeleteDorm(c *gin.Context) {
	if err := h.dorms.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dorm deleted successfully"})
}

// AddReview handles POST /api/dorms/:id/reviews
func (h *Handler) AddReview(c *gin.Context) {
	var in service.ReviewInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.dorms.AddReview(c.Request.Context(), c.Param("id"), currentUser(c), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
