package uploads

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const cloudinaryFolder = "blog-app/profile-pictures"

var publicIDPattern = regexp.MustCompile(`/v\d+/(.+)\.[a-zA-Z]+$`)

type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(url string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration error: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, userID string, img Image) (string, error) {
	params := uploader.UploadParams{
		Folder:         cloudinaryFolder,
		PublicID:       fmt.Sprintf("profile-%s-%d", userID, time.Now().UnixMilli()),
		Transformation: "c_fill,g_face,w_400,h_400/q_auto:good/f_auto",
	}

	res, err := c.cld.Upload.Upload(ctx, img.Reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, url string) error {
	publicID := PublicIDFromURL(url)
	if publicID == "" {
		return nil
	}
	if _, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("failed to delete from cloudinary: %w", err)
	}
	return nil
}

// PublicIDFromURL extracts "folder/name" from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v123/folder/name.jpg.
func PublicIDFromURL(url string) string {
	m := publicIDPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
