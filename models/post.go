package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	IsDraft     bool               `bson:"isDraft" json:"isDraft"`
	PublishedAt *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Tags        []string           `bson:"tags" json:"tags"`
	Likes       int64              `bson:"likes" json:"likes"`
	Views       int64              `bson:"views" json:"views"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PostWithAuthor is a post joined with the read-only projection of its creator.
type PostWithAuthor struct {
	Post   `bson:",inline"`
	Author Author `bson:"author" json:"author"`
}

// Author is the part of a User shown next to a post. It is never written back.
type Author struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	IsAuthor       bool               `bson:"isAuthor" json:"isAuthor"`
	Bio            string             `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
}

const UnknownAuthorName = "Unknown author"

// FallbackAuthor is substituted when a post's creator no longer exists.
func FallbackAuthor(id primitive.ObjectID) Author {
	return Author{
		ID:   id,
		Name: UnknownAuthorName,
	}
}
