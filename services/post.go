package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"blogapi/cache"
	"blogapi/database"
	"blogapi/metrics"
	"blogapi/models"
	"blogapi/pagination"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PostStore is the slice of the post collection the service needs.
type PostStore interface {
	Insert(ctx context.Context, post *models.Post) error
	Count(ctx context.Context, f database.PostFilter) (int64, error)
	FindPage(ctx context.Context, f database.PostFilter, opts pagination.Options) ([]models.PostWithAuthor, error)
	FindWithAuthor(ctx context.Context, id primitive.ObjectID) (*models.PostWithAuthor, error)
	UpdateOwned(ctx context.Context, id, owner primitive.ObjectID, patch database.PostPatch, now time.Time) (*models.Post, error)
	SetPublished(ctx context.Context, id, owner primitive.ObjectID, at *time.Time, now time.Time) (*models.Post, error)
	DeleteOwned(ctx context.Context, id, owner primitive.ObjectID) error
}

type AuthorMarker interface {
	MarkAuthor(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

type CreatePostInput struct {
	Title       string
	Description string
	Tags        []string
}

// UpdatePostInput carries a partial update. Nil fields are not touched.
type UpdatePostInput struct {
	Title       *string
	Description *string
	Tags        *[]string
}

type PostService struct {
	posts   PostStore
	authors AuthorMarker
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
	reads   singleflight.Group
	now     func() time.Time
}

func NewPostService(posts PostStore, authors AuthorMarker, c cache.Cache, m *metrics.Metrics, logger *zap.SugaredLogger) *PostService {
	if c == nil {
		c = cache.Noop{}
	}
	return &PostService{
		posts:   posts,
		authors: authors,
		cache:   c,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

const (
	errPostNotFound    = "post not found"
	sharedFetchTimeout = 10 * time.Second
)

// List returns one page of posts, newest first. ownerID restricts the page
// to one creator when non-empty.
func (s *PostService) List(ctx context.Context, opts pagination.Options, publishedOnly bool, ownerID string) (pagination.Response[models.PostWithAuthor], error) {
	filter := database.PostFilter{PublishedOnly: publishedOnly}
	if ownerID != "" {
		owner, err := callerID(ownerID)
		if err != nil {
			return pagination.Failure[models.PostWithAuthor](MessageOf(err)), err
		}
		filter.Owner = &owner
	}
	return s.page(ctx, filter, opts)
}

// Search matches query against title, description and tags. Callers decide
// the scope; the HTTP layer defaults to published posts.
func (s *PostService) Search(ctx context.Context, query string, opts pagination.Options, publishedOnly bool) (pagination.Response[models.PostWithAuthor], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		err := InvalidInput("search query is required")
		return pagination.Failure[models.PostWithAuthor](MessageOf(err)), err
	}
	return s.page(ctx, database.PostFilter{PublishedOnly: publishedOnly, Query: query}, opts)
}

// page counts and fetches with the same filter. The two reads are not a
// snapshot, so the total may briefly disagree with the items under writes.
func (s *PostService) page(ctx context.Context, filter database.PostFilter, opts pagination.Options) (pagination.Response[models.PostWithAuthor], error) {
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		s.logger.Errorw("Count posts failed", "error", err)
		err = StoreFailure("failed to fetch posts", err)
		return pagination.Failure[models.PostWithAuthor](MessageOf(err)), err
	}

	items, err := s.posts.FindPage(ctx, filter, opts)
	if err != nil {
		s.logger.Errorw("Find posts failed", "error", err)
		err = StoreFailure("failed to fetch posts", err)
		return pagination.Failure[models.PostWithAuthor](MessageOf(err)), err
	}

	return pagination.Envelope(items, total, opts.Page, opts.Limit), nil
}

// GetByID is a public read: no ownership check. Malformed ids are reported as
// not found.
func (s *PostService) GetByID(ctx context.Context, id string) (*models.PostWithAuthor, error) {
	postID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, NotFound(errPostNotFound)
	}

	key := cache.Key(cache.KeyPost, postID.Hex())
	var cached models.PostWithAuthor
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	// The shared fetch outlives any single caller; each caller stops
	// waiting when its own context ends.
	ch := s.reads.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		post, err := s.posts.FindWithAuthor(fetchCtx, postID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fetchCtx, key, post); err != nil {
			s.logger.Warnw("Cache set failed", "key", key, "error", err)
		}
		return post, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, StoreFailure("failed to fetch post", ctx.Err())
	case res = <-ch:
	}

	v, err := res.Val, res.Err
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound(errPostNotFound)
	}
	if err != nil {
		s.logger.Errorw("Get post failed", "postId", id, "error", err)
		return nil, StoreFailure("failed to fetch post", err)
	}
	return v.(*models.PostWithAuthor), nil
}

// Create stores a new draft. The owner's first post also flags them as an
// author; that update is conditional so it happens once.
func (s *PostService) Create(ctx context.Context, in CreatePostInput, ownerID string) (*models.Post, error) {
	owner, err := callerID(ownerID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" {
		return nil, InvalidInput("title is required")
	}
	if description == "" {
		return nil, InvalidInput("description is required")
	}

	now := s.now()
	post := &models.Post{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		CreatedBy:   owner,
		IsPublished: false,
		IsDraft:     true,
		Tags:        cleanTags(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.posts.Insert(ctx, post); err != nil {
		s.logger.Errorw("Create post failed", "error", err)
		return nil, StoreFailure("failed to create post", err)
	}
	s.metrics.RecordPostMutation(ctx, "create")

	if first, err := s.authors.MarkAuthor(ctx, owner, now); err != nil {
		s.logger.Warnw("Mark author failed", "userId", ownerID, "error", err)
	} else if first {
		s.logger.Infow("User became an author", "userId", ownerID)
		s.invalidate(ctx, cache.Key(cache.KeyPublicProfile, ownerID))
	}

	return post, nil
}

func (s *PostService) Update(ctx context.Context, id, ownerID string, in UpdatePostInput) (*models.Post, error) {
	postID, owner, err := s.target(id, ownerID)
	if err != nil {
		return nil, err
	}

	var patch database.PostPatch
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, InvalidInput("title cannot be empty")
		}
		patch.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, InvalidInput("description cannot be empty")
		}
		patch.Description = &description
	}
	if in.Tags != nil {
		patch.Tags = cleanTags(*in.Tags)
		patch.SetTags = true
	}
	if patch.Empty() {
		return nil, InvalidInput("at least one field must be provided")
	}

	post, err := s.posts.UpdateOwned(ctx, postID, owner, patch, s.now())
	return s.mutated(ctx, "update", postID, post, err)
}

// Publish makes the post public. Publishing again succeeds and moves
// publishedAt to now.
func (s *PostService) Publish(ctx context.Context, id, ownerID string) (*models.Post, error) {
	postID, owner, err := s.target(id, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	post, err := s.posts.SetPublished(ctx, postID, owner, &now, now)
	return s.mutated(ctx, "publish", postID, post, err)
}

func (s *PostService) Unpublish(ctx context.Context, id, ownerID string) (*models.Post, error) {
	postID, owner, err := s.target(id, ownerID)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.SetPublished(ctx, postID, owner, nil, s.now())
	return s.mutated(ctx, "unpublish", postID, post, err)
}

func (s *PostService) Delete(ctx context.Context, id, ownerID string) error {
	postID, owner, err := s.target(id, ownerID)
	if err != nil {
		return err
	}

	_, err = s.mutated(ctx, "delete", postID, nil, s.posts.DeleteOwned(ctx, postID, owner))
	return err
}

func (s *PostService) target(id, ownerID string) (primitive.ObjectID, primitive.ObjectID, error) {
	owner, err := callerID(ownerID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	postID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, InvalidInput("invalid post id")
	}
	return postID, owner, nil
}

// mutated maps the store result of an owner-scoped write. Missing and
// not-owned posts both come back as not found.
func (s *PostService) mutated(ctx context.Context, op string, postID primitive.ObjectID, post *models.Post, err error) (*models.Post, error) {
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound(errPostNotFound)
	}
	if err != nil {
		s.logger.Errorw("Post mutation failed", "op", op, "postId", postID.Hex(), "error", err)
		return nil, StoreFailure("failed to "+op+" post", err)
	}

	s.metrics.RecordPostMutation(ctx, op)
	s.invalidate(ctx, cache.Key(cache.KeyPost, postID.Hex()))
	return post, nil
}

func (s *PostService) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warnw("Cache invalidation failed", "keys", keys, "error", err)
	}
}

// callerID parses the identity attached by the auth middleware.
func callerID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, Unauthorized("invalid user id")
	}
	return oid, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
