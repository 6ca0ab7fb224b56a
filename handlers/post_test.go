package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogapi/middleware"
	"blogapi/models"
	"blogapi/pagination"
	"blogapi/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockPosts struct {
	mock.Mock
}

func (m *mockPosts) List(ctx context.Context, opts pagination.Options, publishedOnly bool, ownerID string) (pagination.Response[models.PostWithAuthor], error) {
	args := m.Called(ctx, opts, publishedOnly, ownerID)
	return args.Get(0).(pagination.Response[models.PostWithAuthor]), args.Error(1)
}

func (m *mockPosts) Search(ctx context.Context, query string, opts pagination.Options, publishedOnly bool) (pagination.Response[models.PostWithAuthor], error) {
	args := m.Called(ctx, query, opts, publishedOnly)
	return args.Get(0).(pagination.Response[models.PostWithAuthor]), args.Error(1)
}

func (m *mockPosts) GetByID(ctx context.Context, id string) (*models.PostWithAuthor, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.PostWithAuthor)
	return post, args.Error(1)
}

func (m *mockPosts) Create(ctx context.Context, in services.CreatePostInput, ownerID string) (*models.Post, error) {
	args := m.Called(ctx, in, ownerID)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockPosts) Update(ctx context.Context, id, ownerID string, in services.UpdatePostInput) (*models.Post, error) {
	args := m.Called(ctx, id, ownerID, in)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockPosts) Publish(ctx context.Context, id, ownerID string) (*models.Post, error) {
	args := m.Called(ctx, id, ownerID)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockPosts) Unpublish(ctx context.Context, id, ownerID string) (*models.Post, error) {
	args := m.Called(ctx, id, ownerID)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockPosts) Delete(ctx context.Context, id, ownerID string) error {
	return m.Called(ctx, id, ownerID).Error(0)
}

const callerHex = "64b7f0c2a1b2c3d4e5f60718"

// withCaller stands in for RequireAuth.
func withCaller(c *gin.Context) {
	c.Set(middleware.UserIDKey, callerHex)
	c.Next()
}

func postRouter(posts PostService) *gin.Engine {
	h := NewPostHandler(posts, zap.NewNop().Sugar())
	r := gin.New()
	r.GET("/posts", h.List)
	r.GET("/posts/search", h.Search)
	r.GET("/post/:id", h.GetByID)

	authed := r.Group("/", withCaller)
	authed.GET("/posts/my", h.MyPosts)
	authed.POST("/post", h.Create)
	authed.PUT("/post/:id", h.Update)
	authed.DELETE("/post/:id", h.Delete)
	authed.PATCH("/post/:id/publish", h.Publish)
	authed.PATCH("/post/:id/unpublish", h.Unpublish)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestListQueryParams(t *testing.T) {
	page := pagination.Envelope([]models.PostWithAuthor{}, 0, 2, 5)

	tests := []struct {
		name      string
		target    string
		opts      pagination.Options
		published bool
	}{
		{"defaults", "/posts", pagination.New(1, 10), false},
		{"published", "/posts?page=2&limit=5&published=true", pagination.New(2, 5), true},
		{"clamped", "/posts?page=-3&limit=1000", pagination.New(1, 100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := &mockPosts{}
			posts.On("List", mock.Anything, tt.opts, tt.published, "").Return(page, nil)

			w := serve(postRouter(posts), http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, true, decode(t, w)["success"])
			posts.AssertExpectations(t)
		})
	}
}

func TestSearchDefaultsToPublished(t *testing.T) {
	page := pagination.Envelope([]models.PostWithAuthor{}, 0, 1, 10)
	posts := &mockPosts{}
	posts.On("Search", mock.Anything, "go", pagination.New(1, 10), true).Return(page, nil).Once()
	posts.On("Search", mock.Anything, "go", pagination.New(1, 10), false).Return(page, nil).Once()

	r := postRouter(posts)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/posts/search?q=go", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/posts/search?q=go&published=false", "").Code)
	posts.AssertExpectations(t)
}

func TestSearchWithoutQuery(t *testing.T) {
	err := services.InvalidInput("search query is required")
	posts := &mockPosts{}
	posts.On("Search", mock.Anything, "", pagination.New(1, 10), true).
		Return(pagination.Failure[models.PostWithAuthor](services.MessageOf(err)), err)

	w := serve(postRouter(posts), http.MethodGet, "/posts/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "search query is required", body["error"])
	assert.NotContains(t, body, "data")
}

func TestListStoreFailureIs500(t *testing.T) {
	err := services.StoreFailure("failed to fetch posts", errors.New("timeout"))
	posts := &mockPosts{}
	posts.On("List", mock.Anything, mock.Anything, false, "").
		Return(pagination.Failure[models.PostWithAuthor](services.MessageOf(err)), err)

	w := serve(postRouter(posts), http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to fetch posts", decode(t, w)["error"])
}

func TestMyPostsUsesCaller(t *testing.T) {
	posts := &mockPosts{}
	posts.On("List", mock.Anything, pagination.New(1, 10), false, callerHex).
		Return(pagination.Envelope([]models.PostWithAuthor{}, 0, 1, 10), nil)

	w := serve(postRouter(posts), http.MethodGet, "/posts/my", "")
	assert.Equal(t, http.StatusOK, w.Code)
	posts.AssertExpectations(t)
}

func TestCreatePost(t *testing.T) {
	posts := &mockPosts{}
	in := services.CreatePostInput{Title: "Hello", Description: "World", Tags: []string{"go"}}
	created := &models.Post{ID: primitive.NewObjectID(), Title: "Hello", IsDraft: true}
	posts.On("Create", mock.Anything, in, callerHex).Return(created, nil)

	w := serve(postRouter(posts), http.MethodPost, "/post",
		`{"title":"Hello","description":"World","tags":["go"],"createdBy":"someone-else"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Post created successfully", body["message"])
	assert.Equal(t, "Hello", body["post"].(map[string]interface{})["title"])
	posts.AssertExpectations(t)
}

func TestCreatePostRejectsBadJSON(t *testing.T) {
	posts := &mockPosts{}
	w := serve(postRouter(posts), http.MethodPost, "/post", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	posts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestMutationErrorsMapToStatus(t *testing.T) {
	id := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", services.NotFound("post not found"), http.StatusNotFound},
		{"bad id", services.InvalidInput("invalid post id"), http.StatusBadRequest},
		{"bad caller", services.Unauthorized("invalid user id"), http.StatusUnauthorized},
		{"store", services.StoreFailure("failed to publish post", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := &mockPosts{}
			posts.On("Publish", mock.Anything, id, callerHex).Return(nil, tt.err)

			w := serve(postRouter(posts), http.MethodPatch, "/post/"+id+"/publish", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, services.MessageOf(tt.err), decode(t, w)["error"])
		})
	}
}

func TestUpdateUnpublishDelete(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	title := "New"
	post := &models.Post{Title: title}

	posts := &mockPosts{}
	posts.On("Update", mock.Anything, id, callerHex, services.UpdatePostInput{Title: &title}).Return(post, nil)
	posts.On("Unpublish", mock.Anything, id, callerHex).Return(post, nil)
	posts.On("Delete", mock.Anything, id, callerHex).Return(nil)
	r := postRouter(posts)

	w := serve(r, http.MethodPut, "/post/"+id, `{"title":"New"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post updated successfully", decode(t, w)["message"])

	w = serve(r, http.MethodPatch, "/post/"+id+"/unpublish", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodDelete, "/post/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post deleted successfully", decode(t, w)["message"])

	posts.AssertExpectations(t)
}

func TestGetPostByID(t *testing.T) {
	id := primitive.NewObjectID()
	posts := &mockPosts{}
	posts.On("GetByID", mock.Anything, id.Hex()).Return(&models.PostWithAuthor{
		Post:   models.Post{ID: id, Title: "T"},
		Author: models.Author{Name: "Ada"},
	}, nil)
	posts.On("GetByID", mock.Anything, "nope").Return(nil, services.NotFound("post not found"))
	r := postRouter(posts)

	w := serve(r, http.MethodGet, "/post/"+id.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code)
	post := decode(t, w)["post"].(map[string]interface{})
	assert.Equal(t, "Ada", post["author"].(map[string]interface{})["name"])

	w = serve(r, http.MethodGet, "/post/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
