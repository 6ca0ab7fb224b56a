package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicProfile is the subset of a user anyone may read.
type PublicProfile struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Bio            string             `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	SocialLinks    SocialLinks        `bson:"socialLinks" json:"socialLinks"`
	IsAuthor       bool               `bson:"isAuthor" json:"isAuthor"`
	AuthorSince    *time.Time         `bson:"authorSince,omitempty" json:"authorSince,omitempty"`
	FollowerCount  int64              `bson:"followerCount" json:"followerCount"`
	FollowingCount int64              `bson:"followingCount" json:"followingCount"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Name:           u.Name,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		SocialLinks:    u.SocialLinks,
		IsAuthor:       u.IsAuthor,
		AuthorSince:    u.AuthorSince,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
	}
}
