package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("only JPEG, PNG, GIF, and WebP images are allowed")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader stores profile pictures and returns a URL clients can load.
type Uploader interface {
	Upload(ctx context.Context, userID string, img Image) (string, error)
	Delete(ctx context.Context, url string) error
}

// Image is a validated upload ready to be stored.
type Image struct {
	Reader    io.ReadSeeker
	MIME      string
	Extension string
	Size      int64
}

// Open validates an uploaded file by size and sniffed content type. The
// caller closes the returned file.
func Open(header *multipart.FileHeader, maxBytes int64) (multipart.File, Image, error) {
	if header.Size > maxBytes {
		return nil, Image{}, ErrTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, Image{}, fmt.Errorf("failed to open upload: %w", err)
	}

	img, err := Inspect(f, header.Size)
	if err != nil {
		f.Close()
		return nil, Image{}, err
	}
	return f, img, nil
}

// Inspect sniffs r's content type and rewinds it.
func Inspect(r io.ReadSeeker, size int64) (Image, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return Image{}, fmt.Errorf("failed to detect file type: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Image{}, fmt.Errorf("failed to rewind upload: %w", err)
	}

	ext, ok := allowedTypes[mt.String()]
	if !ok {
		return Image{}, ErrUnsupportedType
	}
	return Image{Reader: r, MIME: mt.String(), Extension: ext, Size: size}, nil
}
