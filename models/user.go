package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"`

	IsVerified               bool       `bson:"isVerified" json:"isVerified"`
	VerificationToken        string     `bson:"verificationToken,omitempty" json:"-"`
	VerificationTokenExpires *time.Time `bson:"verificationTokenExpires,omitempty" json:"-"`
	EmailVerificationFailed  bool       `bson:"emailVerificationFailed" json:"-"`
	ResetPasswordToken       string     `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpires     *time.Time `bson:"resetPasswordExpires,omitempty" json:"-"`

	// Profile fields
	IsAuthor       bool        `bson:"isAuthor" json:"isAuthor"`
	AuthorSince    *time.Time  `bson:"authorSince,omitempty" json:"authorSince,omitempty"`
	Bio            string      `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfilePicture string      `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	SocialLinks    SocialLinks `bson:"socialLinks" json:"socialLinks"`
	FollowerCount  int64       `bson:"followerCount" json:"followerCount"`
	FollowingCount int64       `bson:"followingCount" json:"followingCount"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type SocialLinks struct {
	X        string `bson:"X,omitempty" json:"X,omitempty"`
	LinkedIn string `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	Website  string `bson:"website,omitempty" json:"website,omitempty"`
}

// UserSummary is what user listings and login responses expose.
type UserSummary struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	IsVerified bool               `bson:"isVerified" json:"isVerified"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

type UserStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalAuthors  int64 `json:"totalAuthors"`
	VerifiedUsers int64 `json:"verifiedUsers"`
	RegularUsers  int64 `json:"regularUsers"`
}
