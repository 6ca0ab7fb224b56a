package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"time"
	"unicode/utf8"

	"blogapi/cache"
	"blogapi/database"
	"blogapi/models"
	"blogapi/uploads"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxBioLength = 500

type ProfileStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd database.ProfileUpdate, now time.Time) (*models.User, error)
}

type SocialLinksInput struct {
	X        string `json:"X"`
	LinkedIn string `json:"linkedin"`
	Website  string `json:"website"`
}

type ProfileInput struct {
	Bio            *string           `json:"bio"`
	ProfilePicture *string           `json:"profilePicture"`
	SocialLinks    *SocialLinksInput `json:"socialLinks"`
}

type PictureResult struct {
	ProfilePicture string       `json:"profilePicture"`
	Profile        *models.User `json:"profile"`
}

type ProfileService struct {
	users    ProfileStore
	uploader uploads.Uploader
	cache    cache.Cache
	logger   *zap.SugaredLogger
	maxBytes int64
	now      func() time.Time
}

func NewProfileService(users ProfileStore, uploader uploads.Uploader, c cache.Cache, maxBytes int64, logger *zap.SugaredLogger) *ProfileService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ProfileService{
		users:    users,
		uploader: uploader,
		cache:    c,
		logger:   logger,
		maxBytes: maxBytes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProfileService) GetMine(ctx context.Context, userID string) (*models.User, error) {
	id, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *ProfileService) GetPublic(ctx context.Context, userID string) (*models.PublicProfile, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, InvalidInput("invalid user id format")
	}

	key := cache.Key(cache.KeyPublicProfile, id.Hex())
	var cached models.PublicProfile
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.Public()
	if err := s.cache.Set(ctx, key, profile); err != nil {
		s.logger.Warnw("Cache set failed", "key", key, "error", err)
	}
	return &profile, nil
}

func (s *ProfileService) UpdateMine(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	id, err := callerID(userID)
	if err != nil {
		return nil, err
	}

	var upd database.ProfileUpdate
	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > maxBioLength {
			return nil, InvalidInput(fmt.Sprintf("bio must be at most %d characters", maxBioLength))
		}
		upd.Bio = in.Bio
	}
	if in.ProfilePicture != nil {
		if *in.ProfilePicture != "" && !validURL(*in.ProfilePicture) {
			return nil, InvalidInput("profilePicture must be a valid URL")
		}
		upd.ProfilePicture = in.ProfilePicture
	}
	if in.SocialLinks != nil {
		links := models.SocialLinks{X: in.SocialLinks.X, LinkedIn: in.SocialLinks.LinkedIn, Website: in.SocialLinks.Website}
		for _, link := range []string{links.X, links.LinkedIn, links.Website} {
			if link != "" && !validURL(link) {
				return nil, InvalidInput("social links must be valid URLs")
			}
		}
		upd.SocialLinks = &links
	}
	if upd.Bio == nil && upd.ProfilePicture == nil && upd.SocialLinks == nil {
		return nil, InvalidInput("at least one field must be provided")
	}

	return s.update(ctx, id, upd)
}

// UploadPicture stores a new picture and then drops the previous one. A
// failure to delete the old file is only logged.
func (s *ProfileService) UploadPicture(ctx context.Context, userID string, header *multipart.FileHeader) (*PictureResult, error) {
	id, err := callerID(userID)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, InvalidInput("no file uploaded, please select an image file")
	}

	file, img, err := uploads.Open(header, s.maxBytes)
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		return nil, InvalidInput(fmt.Sprintf("file too large, maximum size is %dMB", s.maxBytes>>20))
	case errors.Is(err, uploads.ErrUnsupportedType):
		return nil, InvalidInput(uploads.ErrUnsupportedType.Error())
	case err != nil:
		return nil, StoreFailure("failed to upload profile picture", err)
	}
	defer file.Close()

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	picURL, err := s.uploader.Upload(ctx, id.Hex(), img)
	if err != nil {
		s.logger.Errorw("Profile picture upload failed", "userId", userID, "error", err)
		return nil, StoreFailure("failed to upload profile picture", err)
	}

	updated, err := s.update(ctx, id, database.ProfileUpdate{ProfilePicture: &picURL})
	if err != nil {
		return nil, err
	}

	if current.ProfilePicture != "" {
		s.removeRemote(ctx, current.ProfilePicture)
	}
	return &PictureResult{ProfilePicture: picURL, Profile: updated}, nil
}

func (s *ProfileService) DeletePicture(ctx context.Context, userID string) (*models.User, error) {
	id, err := callerID(userID)
	if err != nil {
		return nil, err
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.ProfilePicture == "" {
		return nil, InvalidInput("no profile picture to delete")
	}

	empty := ""
	updated, err := s.update(ctx, id, database.ProfileUpdate{ProfilePicture: &empty})
	if err != nil {
		return nil, err
	}

	s.removeRemote(ctx, current.ProfilePicture)
	return updated, nil
}

func (s *ProfileService) find(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound("user not found")
	}
	if err != nil {
		return nil, StoreFailure("failed to retrieve user profile", err)
	}
	return user, nil
}

func (s *ProfileService) update(ctx context.Context, id primitive.ObjectID, upd database.ProfileUpdate) (*models.User, error) {
	user, err := s.users.UpdateProfile(ctx, id, upd, s.now())
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound("user not found")
	}
	if err != nil {
		return nil, StoreFailure("failed to update user profile", err)
	}

	key := cache.Key(cache.KeyPublicProfile, id.Hex())
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warnw("Cache invalidation failed", "key", key, "error", err)
	}
	return user, nil
}

func (s *ProfileService) removeRemote(ctx context.Context, picURL string) {
	if err := s.uploader.Delete(ctx, picURL); err != nil {
		s.logger.Warnw("Failed to delete old profile picture", "url", picURL, "error", err)
	}
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
