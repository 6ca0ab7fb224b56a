package handlers

import (
	"context"
	"mime/multipart"
	"net/http"

	"blogapi/middleware"
	"blogapi/models"
	"blogapi/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PictureField is the multipart field carrying a profile picture.
const PictureField = "profilePicture"

type ProfileService interface {
	GetMine(ctx context.Context, userID string) (*models.User, error)
	GetPublic(ctx context.Context, userID string) (*models.PublicProfile, error)
	UpdateMine(ctx context.Context, userID string, in services.ProfileInput) (*models.User, error)
	UploadPicture(ctx context.Context, userID string, header *multipart.FileHeader) (*services.PictureResult, error)
	DeletePicture(ctx context.Context, userID string) (*models.User, error)
}

type ProfileHandler struct {
	profiles ProfileService
	logger   *zap.SugaredLogger
}

func NewProfileHandler(profiles ProfileService, logger *zap.SugaredLogger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func (h *ProfileHandler) GetMine(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.profiles.GetMine(ctx, middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": user})
}

func (h *ProfileHandler) UpdateMine(c *gin.Context) {
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.profiles.UpdateMine(ctx, middleware.CallerID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Profile updated successfully", "data": user})
}

func (h *ProfileHandler) GetPublic(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.profiles.GetPublic(ctx, c.Param("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": profile})
}

func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	header, err := c.FormFile(PictureField)
	if err != nil {
		fail(c, http.StatusBadRequest, "no file uploaded, please select an image file")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.profiles.UploadPicture(ctx, middleware.CallerID(c), header)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Profile picture uploaded successfully", "data": res})
}

func (h *ProfileHandler) DeletePicture(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.profiles.DeletePicture(ctx, middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Profile picture deleted successfully", "data": user})
}
