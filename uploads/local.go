package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const localURLPrefix = "/uploads/profiles/"

// Local writes pictures under dir/profiles and serves them from /uploads.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(dir, "profiles"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Root() string {
	return l.dir
}

func (l *Local) Upload(_ context.Context, userID string, img Image) (string, error) {
	name := fmt.Sprintf("profile-%s-%s%s", userID, uuid.NewString(), img.Extension)

	f, err := os.OpenFile(filepath.Join(l.dir, "profiles", name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, img.Reader); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return localURLPrefix + name, nil
}

// Delete removes a file previously returned by Upload. Other URLs are ignored.
func (l *Local) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, localURLPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, localURLPrefix))
	err := os.Remove(filepath.Join(l.dir, "profiles", name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
