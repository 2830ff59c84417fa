// Package cover applies a phase by uploading that phase's cover image to the
// target playlist. This is the external action the scheduler triggers.
package cover

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"time"

	"coverchanger/internal/phase"

	"go.uber.org/zap"
)

// MaxImageBytes is the Spotify cover upload limit (256 KB of JPEG data).
// Config validation rejects larger files at startup.
const MaxImageBytes = 256 * 1024

// Uploader is the slice of the Spotify client the changer needs.
type Uploader interface {
	UploadCover(ctx context.Context, playlistID, jpegBase64 string) error
}

// Changer maps phases to image files and uploads them.
type Changer struct {
	uploader   Uploader
	playlistID string
	images     map[phase.Phase]string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewChanger creates a cover changer. images must contain a path for every
// phase; config validation guarantees this.
func NewChanger(uploader Uploader, playlistID string, images map[phase.Phase]string, logger *zap.Logger) *Changer {
	return &Changer{
		uploader:   uploader,
		playlistID: playlistID,
		images:     images,
		timeout:    30 * time.Second,
		logger:     logger.Named("cover"),
	}
}

// Apply uploads the cover for p and reports success. It never panics and
// never returns an error: a false result means the caller must not persist
// the phase, so the next boundary or reconciliation retries.
func (c *Changer) Apply(p phase.Phase) bool {
	path, ok := c.images[p]
	if !ok {
		c.logger.Error("No image configured for phase", zap.String("phase", string(p)))
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Error("Failed to read cover image",
			zap.String("phase", string(p)),
			zap.String("path", path),
			zap.Error(err))
		return false
	}

	if len(data) > MaxImageBytes {
		c.logger.Warn("Cover image exceeds upload limit, upload may be rejected",
			zap.String("path", path),
			zap.Int("size", len(data)))
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.logger.Info("Changing playlist cover",
		zap.String("phase", string(p)),
		zap.String("image", filepath.Base(path)))

	if err := c.uploader.UploadCover(ctx, c.playlistID, encoded); err != nil {
		c.logger.Error("Cover upload failed",
			zap.String("phase", string(p)),
			zap.Error(err))
		return false
	}

	return true
}
