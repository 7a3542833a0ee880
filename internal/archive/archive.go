package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/locate-ingest/internal/config"
)

// BlobStore is a write-once archive for raw payloads. The core pipeline never
// reads it back; it exists for audit and replay.
type BlobStore interface {
	Put(ctx context.Context, eventLabel, notificationID string, receivedAt time.Time, body []byte) (string, error)
}

// FilesystemStore archives payloads under a local root directory, partitioned
// by event label and date: <root>/<label>/YYYY/MM/DD/<notificationID>.json.
type FilesystemStore struct {
	root   string
	logger *zap.Logger
}

// NewFilesystemStore constructs the store and ensures the root exists.
func NewFilesystemStore(cfg config.ArchiveConfig, logger *zap.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &FilesystemStore{root: cfg.RootDir, logger: logger}, nil
}

// Put writes one raw payload and returns its archive reference.
func (s *FilesystemStore) Put(_ context.Context, eventLabel, notificationID string, receivedAt time.Time, body []byte) (string, error) {
	if eventLabel == "" {
		eventLabel = "unlabeled"
	}
	rel := filepath.Join(
		sanitizeSegment(eventLabel),
		receivedAt.UTC().Format("2006/01/02"),
		sanitizeSegment(notificationID)+".json",
	)
	path := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create archive partition: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write archive blob: %w", err)
	}
	s.logger.Debug("archived raw payload", zap.String("ref", rel), zap.Int("bytes", len(body)))
	return rel, nil
}

func sanitizeSegment(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
