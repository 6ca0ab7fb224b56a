package handlers

import (
	"context"
	"net/http"

	"blogapi/middleware"
	"blogapi/models"
	"blogapi/pagination"
	"blogapi/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PostService interface {
	List(ctx context.Context, opts pagination.Options, publishedOnly bool, ownerID string) (pagination.Response[models.PostWithAuthor], error)
	Search(ctx context.Context, query string, opts pagination.Options, publishedOnly bool) (pagination.Response[models.PostWithAuthor], error)
	GetByID(ctx context.Context, id string) (*models.PostWithAuthor, error)
	Create(ctx context.Context, in services.CreatePostInput, ownerID string) (*models.Post, error)
	Update(ctx context.Context, id, ownerID string, in services.UpdatePostInput) (*models.Post, error)
	Publish(ctx context.Context, id, ownerID string) (*models.Post, error)
	Unpublish(ctx context.Context, id, ownerID string) (*models.Post, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type CreatePostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type UpdatePostRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

type PostHandler struct {
	posts  PostService
	logger *zap.SugaredLogger
}

func NewPostHandler(posts PostService, logger *zap.SugaredLogger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// List serves GET /posts. Drafts are included unless published=true.
func (h *PostHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	opts := pagination.Parse(c.Query("page"), c.Query("limit"))
	resp, err := h.posts.List(ctx, opts, c.Query("published") == "true", "")
	h.page(c, resp, err)
}

// Search serves GET /posts/search. Only published posts match unless
// published=false.
func (h *PostHandler) Search(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	opts := pagination.Parse(c.Query("page"), c.Query("limit"))
	resp, err := h.posts.Search(ctx, c.Query("q"), opts, c.Query("published") != "false")
	h.page(c, resp, err)
}

func (h *PostHandler) MyPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	opts := pagination.Parse(c.Query("page"), c.Query("limit"))
	resp, err := h.posts.List(ctx, opts, c.Query("published") == "true", middleware.CallerID(c))
	h.page(c, resp, err)
}

func (h *PostHandler) page(c *gin.Context, resp pagination.Response[models.PostWithAuthor], err error) {
	if err != nil {
		if services.KindOf(err) == services.KindStoreFailure {
			h.logger.Errorw("Post listing failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(statusOf(services.KindOf(err)), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PostHandler) GetByID(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post retrieved successfully", "post": post})
}

func (h *PostHandler) Create(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.Create(ctx, services.CreatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}, middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Post created successfully", "post": post})
}

func (h *PostHandler) Update(c *gin.Context) {
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.Update(ctx, c.Param("id"), middleware.CallerID(c), services.UpdatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post updated successfully", "post": post})
}

func (h *PostHandler) Publish(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.Publish(ctx, c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post published successfully", "post": post})
}

func (h *PostHandler) Unpublish(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.Unpublish(ctx, c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post unpublished successfully", "post": post})
}

func (h *PostHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.posts.Delete(ctx, c.Param("id"), middleware.CallerID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
