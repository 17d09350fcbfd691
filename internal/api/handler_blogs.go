package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cudorms-backend/internal/apperr"
	"cudorms-backend/internal/model"
	"cudorms-backend/internal/parse"
	"cudorms-backend/internal/service"
	"cudorms-backend/internal/store"
)

func blogFilter(c *gin.Context) (store.BlogFilter, error) {
	q := parse.NewQuery(c.Request.URL.Query())
	f := store.BlogFilter{
		Page:     pageOf(q),
		Category: model.Category(q.Enum("category", model.CategoryValues, "Invalid category")),
		Dorm:     q.ID("dorm", "Invalid dorm ID"),
		Search:   q.Text("search", 100, "Search term too long"),
	}
	return f, q.Err()
}

// ListBlogs handles GET /api/blogs
func (h *Handler) ListBlogs(c *gin.Context) {
	f, err := blogFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	res, err := h.blogs.List(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListUserBlogs handles GET /api/users/:userId/blogs
func (h *Handler) ListUserBlogs(c *gin.Context) {
	f, err := blogFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	res, err := h.blogs.ListByAuthor(c.Request.Context(), c.Param("userId"), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetBlog handles GET /api/blogs/:id
func (h *Handler) GetBlog(c *gin.Context) {
	b, err := h.blogs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CreateBlog handles POST /api/blogs
func (h *Handler) CreateBlog(c *gin.Context) {
	var in service.BlogInput
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.blogs.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Blog post created successfully", "blog": b})
}

// UpdateBlog handles PUT /api/blogs/:id
func (h *Handler) UpdateBlog(c *gin.Context) {
	var in service.BlogInput
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.blogs.Update(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Blog post updated successfully", "blog": b})
}

// DeleteBlog handles DELETE /api/blogs/:id
func (h *Handler) DeleteBlog(c *gin.Context) {
	if err := h.blogs.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Blog post deleted successfully"})
}

// ToggleLike handles POST /api/blogs/:id/like
func (h *Handler) ToggleLike(c *gin.Context) {
	res, err := h.blogs.ToggleLike(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AddComment handles POST /api/blogs/:id/comments
func (h *Handler) AddComment(c *gin.Context) {
	var in service.CommentInput
	if !bindJSON(c, &in) {
		return
	}
	comment, err := h.blogs.AddComment(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added successfully", "comment": comment})
}
