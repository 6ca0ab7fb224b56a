package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogapi/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned when a unique index (email) rejects an insert.
var ErrDuplicate = errors.New("duplicate key")

// secretFields never leave the repository in profile reads.
var secretFields = bson.D{
	{"password", 0},
	{"resetPasswordToken", 0},
	{"resetPasswordExpires", 0},
	{"verificationToken", 0},
	{"verificationTokenExpires", 0},
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID returns the user without password or token fields.
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(secretFields))
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// MarkAuthor flags the user as an author the first time only. The condition
// on isAuthor makes concurrent first posts set authorSince once.
func (r *UserRepository) MarkAuthor(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isAuthor": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isAuthor": true, "authorSince": at, "updatedAt": at}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark author: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *UserRepository) SetVerificationFailed(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"emailVerificationFailed": true}})
	if err != nil {
		return fmt.Errorf("failed to flag verification failure: %w", err)
	}
	return nil
}

// VerifyByToken marks the owner of an unexpired verification token verified.
func (r *UserRepository) VerifyByToken(ctx context.Context, token string, now time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"verificationToken": token, "verificationTokenExpires": bson.M{"$gt": now}},
		bson.M{
			"$set":   bson.M{"isVerified": true, "emailVerificationFailed": false, "updatedAt": now},
			"$unset": bson.M{"verificationToken": "", "verificationTokenExpires": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"resetPasswordToken":   token,
		"resetPasswordExpires": expires,
	}})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{
		"resetPasswordToken":   "",
		"resetPasswordExpires": "",
	}})
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// ResetPasswordByToken swaps the password hash for the owner of an unexpired
// reset token and consumes the token.
func (r *UserRepository) ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"resetPasswordToken": token, "resetPasswordExpires": bson.M{"$gt": now}},
		bson.M{
			"$set":   bson.M{"password": passwordHash, "updatedAt": now},
			"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ProfileUpdate mirrors the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Bio            *string
	ProfilePicture *string
	SocialLinks    *models.SocialLinks
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate, now time.Time) (*models.User, error) {
	set := bson.M{"updatedAt": now}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		set["profilePicture"] = *upd.ProfilePicture
	}
	if upd.SocialLinks != nil {
		set["socialLinks"] = *upd.SocialLinks
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(secretFields)

	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.UserSummary, error) {
	opts := options.Find().
		SetProjection(bson.D{{"name", 1}, {"email", 1}, {"isVerified", 1}, {"createdAt", 1}}).
		SetSort(bson.D{{"createdAt", -1}})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.UserSummary{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Stats(ctx context.Context) (models.UserStats, error) {
	var stats models.UserStats
	var err error

	if stats.TotalUsers, err = r.coll.CountDocuments(ctx, bson.M{}); err != nil {
		return stats, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.TotalAuthors, err = r.coll.CountDocuments(ctx, bson.M{"isAuthor": true}); err != nil {
		return stats, fmt.Errorf("failed to count authors: %w", err)
	}
	if stats.VerifiedUsers, err = r.coll.CountDocuments(ctx, bson.M{"isVerified": true}); err != nil {
		return stats, fmt.Errorf("failed to count verified users: %w", err)
	}
	stats.RegularUsers = stats.TotalUsers - stats.TotalAuthors
	return stats, nil
}
