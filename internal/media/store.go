package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chamber/internal/model"
)

// DiskStore persists decoded media payloads under the configured directory,
// one subdirectory per kind. The returned path (e.g. "images/media_1_2.png")
// is what the ledger's content slot records.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	for _, sub := range []string{"images", "audios", "videos"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("media store mkdir: %w", err)
		}
	}
	return &DiskStore{dir: dir}, nil
}

func subdir(kind model.MessageType) string {
	switch kind {
	case model.MessageTypeImage:
		return "images"
	case model.MessageTypeAudio:
		return "audios"
	case model.MessageTypeVideo:
		return "videos"
	default:
		return "blobs"
	}
}

func (s *DiskStore) Save(ctx context.Context, kind model.MessageType, filename string, data []byte) (string, error) {
	rel := filepath.Join(subdir(kind), filepath.Base(filename))
	if err := os.WriteFile(filepath.Join(s.dir, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("media store save: %w", err)
	}
	return rel, nil
}

// Open resolves a stored path for serving. Base-name cleaning keeps requests
// inside the media dir.
func (s *DiskStore) Open(kind, filename string) (string, error) {
	switch kind {
	case "images", "audios", "videos":
	default:
		return "", fmt.Errorf("media store: unknown kind %q", kind)
	}
	path := filepath.Join(s.dir, kind, filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("media store open: %w", err)
	}
	return path, nil
}
