package routes

import (
	"net/http"
	"time"

	"blogapi/auth"
	"blogapi/handlers"
	"blogapi/metrics"
	"blogapi/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Posts    handlers.PostService
	Accounts handlers.AccountService
	Profiles handlers.ProfileService
	Tokens   *auth.TokenManager
	Logger   *zap.SugaredLogger

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	CORSOrigins  []string
	RateLimitRPM int
	// UploadDir is served under /uploads when set.
	UploadDir string
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger, d.Metrics))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if d.RateLimitRPM > 0 {
		router.Use(middleware.RateLimit(middleware.NewIPRateLimiter(d.RateLimitRPM)))
	}

	// Health checks
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "Blog API running",
			"service": "healthy",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if d.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}
	if d.UploadDir != "" {
		router.Static("/uploads", d.UploadDir)
	}

	requireAuth := middleware.RequireAuth(d.Tokens)

	accounts := handlers.NewAuthHandler(d.Accounts, d.Logger)
	user := router.Group("/user")
	user.POST("/signup", accounts.Signup)
	user.POST("/login", accounts.Login)
	user.GET("/verify-email/:token", accounts.VerifyEmail)
	user.POST("/forgot-password", accounts.ForgotPassword)
	user.POST("/reset-password/:token", accounts.ResetPassword)
	user.GET("/users", requireAuth, accounts.ListUsers)
	user.GET("/users/stats", requireAuth, accounts.Stats)

	posts := handlers.NewPostHandler(d.Posts, d.Logger)
	router.GET("/posts", posts.List)
	router.GET("/posts/search", posts.Search)
	router.GET("/post/:id", posts.GetByID)
	router.GET("/posts/my", requireAuth, posts.MyPosts)
	router.POST("/post", requireAuth, posts.Create)
	router.PUT("/post/:id", requireAuth, posts.Update)
	router.DELETE("/post/:id", requireAuth, posts.Delete)
	router.PATCH("/post/:id/publish", requireAuth, posts.Publish)
	router.PATCH("/post/:id/unpublish", requireAuth, posts.Unpublish)

	profiles := handlers.NewProfileHandler(d.Profiles, d.Logger)
	profile := router.Group("/profile")
	profile.GET("/me", requireAuth, profiles.GetMine)
	profile.PUT("/me", requireAuth, profiles.UpdateMine)
	profile.POST("/upload-picture", requireAuth, profiles.UploadPicture)
	profile.DELETE("/delete-picture", requireAuth, profiles.DeletePicture)
	profile.GET("/:userId", profiles.GetPublic)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
	})

	return router
}
