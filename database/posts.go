package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"blogapi/models"
	"blogapi/pagination"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostFilter selects posts for listing and search. The zero value matches
// every post.
type PostFilter struct {
	PublishedOnly bool
	Owner         *primitive.ObjectID
	Query         string
}

// BSON builds the match document shared by Count and FindPage. Query is
// matched as a literal, case-insensitive substring of title, description or
// any tag.
func (f PostFilter) BSON() bson.M {
	filter := bson.M{}
	if f.PublishedOnly {
		filter["isPublished"] = true
	}
	if f.Owner != nil {
		filter["createdBy"] = *f.Owner
	}
	if f.Query != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"tags": re},
		}
	}
	return filter
}

// PostPatch holds the fields an owner may change. Nil fields are left as is.
type PostPatch struct {
	Title       *string
	Description *string
	Tags        []string
	SetTags     bool
}

func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && !p.SetTags
}

type PostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(coll *mongo.Collection) *PostRepository {
	return &PostRepository{coll: coll}
}

func (r *PostRepository) Insert(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) Count(ctx context.Context, f PostFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, f.BSON())
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// FindPage returns one page of matching posts, newest first, each joined with
// its author.
func (r *PostRepository) FindPage(ctx context.Context, f PostFilter, opts pagination.Options) ([]models.PostWithAuthor, error) {
	pipeline := mongo.Pipeline{
		{{"$match", f.BSON()}},
		{{"$sort", bson.D{{"createdAt", -1}, {"_id", -1}}}},
		{{"$skip", int64(opts.Skip)}},
		{{"$limit", int64(opts.Limit)}},
	}
	pipeline = append(pipeline, authorLookup()...)

	return r.aggregate(ctx, pipeline)
}

func (r *PostRepository) FindWithAuthor(ctx context.Context, id primitive.ObjectID) (*models.PostWithAuthor, error) {
	pipeline := mongo.Pipeline{
		{{"$match", bson.D{{"_id", id}}}},
		{{"$limit", 1}},
	}
	pipeline = append(pipeline, authorLookup()...)

	posts, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

func (r *PostRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]models.PostWithAuthor, error) {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []models.PostWithAuthor{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	for i := range posts {
		if posts[i].Author.ID.IsZero() {
			posts[i].Author = models.FallbackAuthor(posts[i].CreatedBy)
		}
	}
	return posts, nil
}

// authorLookup joins the minimal author projection. Posts whose author was
// deleted keep an empty author, filled in by aggregate.
func authorLookup() mongo.Pipeline {
	return mongo.Pipeline{
		{{"$lookup", bson.D{
			{"from", usersCollection},
			{"localField", "createdBy"},
			{"foreignField", "_id"},
			{"pipeline", bson.A{
				bson.D{{"$project", bson.D{
					{"name", 1},
					{"email", 1},
					{"isAuthor", 1},
					{"bio", 1},
					{"profilePicture", 1},
				}}},
			}},
			{"as", "author"},
		}}},
		{{"$unwind", bson.D{
			{"path", "$author"},
			{"preserveNullAndEmptyArrays", true},
		}}},
	}
}

// UpdateOwned applies patch to the post only if owner created it.
func (r *PostRepository) UpdateOwned(ctx context.Context, id, owner primitive.ObjectID, patch PostPatch, now time.Time) (*models.Post, error) {
	set := bson.M{"updatedAt": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.SetTags {
		tags := patch.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}

	return r.findOneAndUpdate(ctx, id, owner, bson.M{"$set": set})
}

// SetPublished publishes the post at the given time, or returns it to draft
// when at is nil. The three state fields are always written together.
func (r *PostRepository) SetPublished(ctx context.Context, id, owner primitive.ObjectID, at *time.Time, now time.Time) (*models.Post, error) {
	var update bson.M
	if at != nil {
		update = bson.M{"$set": bson.M{
			"isPublished": true,
			"isDraft":     false,
			"publishedAt": *at,
			"updatedAt":   now,
		}}
	} else {
		update = bson.M{
			"$set": bson.M{
				"isPublished": false,
				"isDraft":     true,
				"updatedAt":   now,
			},
			"$unset": bson.M{"publishedAt": ""},
		}
	}

	return r.findOneAndUpdate(ctx, id, owner, update)
}

func (r *PostRepository) findOneAndUpdate(ctx context.Context, id, owner primitive.ObjectID, update bson.M) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var post models.Post
	err := r.coll.FindOneAndUpdate(ctx, ownedBy(id, owner), update, opts).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) DeleteOwned(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(id, owner))
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func ownedBy(id, owner primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "createdBy": owner}
}
