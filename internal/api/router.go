package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"cudorms-backend/config"
	"cudorms-backend/internal/auth"
	"cudorms-backend/internal/cache"
	"cudorms-backend/internal/mw"
	"cudorms-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, c cache.Cache, tokens *auth.TokenManager, cfg *config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestID(), mw.Logger(), mw.Recovery(), mw.CORS(cfg.CORSOrigins))

	handler := NewHandler(s, c, tokens)
	authenticate := mw.Authenticate(handler.users)
	responses := mw.NewResponseCache(c, cfg.CacheTTL)
	caching := responses.Serve()

	r.GET("/", handler.Welcome)

	// API group
	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst), mw.Timeout(cfg.RequestTimeout))
	{
		api.GET("/health", handler.Health)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.GET("/profile", authenticate, handler.GetProfile)
		authGroup.PUT("/profile", authenticate, handler.UpdateProfile)
		authGroup.PUT("/change-password", authenticate, handler.ChangePassword)

		// Successful dorm mutations drop every cached dorm response.
		dorms := api.Group("/dorms", responses.Invalidate("/api/dorms"))
		dorms.GET("", caching, handler.ListDorms)
		dorms.GET("/:id", caching, handler.GetDorm)
		dorms.POST("", authenticate, mw.RequireAdmin(), handler.CreateDorm)
		dorms.PUT("/:id", authenticate, mw.RequireAdmin(), handler.UpdateDorm)
		dorms.DELETE("/:id", authenticate, mw.RequireAdmin(), handler.DeleteDorm)
		dorms.POST("/:id/reviews", authenticate, handler.AddReview)

		blogs := api.Group("/blogs")
		blogs.GET("", handler.ListBlogs)
		blogs.GET("/:id", handler.GetBlog)
		blogs.POST("", authenticate, handler.CreateBlog)
		blogs.PUT("/:id", authenticate, handler.UpdateBlog)
		blogs.DELETE("/:id", authenticate, handler.DeleteBlog)
		blogs.POST("/:id/like", authenticate, handler.ToggleLike)
		blogs.POST("/:id/comments", authenticate, handler.AddComment)

		api.GET("/users/:userId/blogs", authenticate, mw.RequireOwnershipOrAdmin(), handler.ListUserBlogs)
	}

	return r
}
