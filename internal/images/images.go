// Package images stores pledge images on local disk or an S3-compatible
// bucket. Stored images are addressed by refs of the form /uploads/<name>.
package images

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const refPrefix = "/uploads/"

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// Object is a stored image as seen by the sweeper.
type Object struct {
	Ref     string
	ModTime time.Time
}

type Store interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	// Delete removes a stored image. The default image and refs this store
	// does not own are left alone; a missing object is not an error.
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
	List(ctx context.Context) ([]Object, error)
}

// Validate checks extension and size before anything is written.
func Validate(file *multipart.FileHeader, maxSize int64) error {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExt[ext] {
		return models.NewValidationError("image", "must be a jpg, jpeg, png, webp or gif file")
	}
	if file.Size > maxSize {
		return models.NewValidationError("image", fmt.Sprintf("must be under %d bytes", maxSize))
	}
	return nil
}

// objectName returns <uuid>-<slug>.<ext>, e.g. 9b2c...-solar-panels.png.
func objectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		return uuid.New().String() + ext
	}
	if len(base) > 40 {
		base = strings.Trim(base[:40], "-")
	}
	return uuid.New().String() + "-" + base + ext
}

// nameFromRef returns the object name behind a ref, or "" for the default
// image and anything outside /uploads/.
func nameFromRef(ref string) string {
	if ref == "" || ref == models.DefaultImage {
		return ""
	}
	name, ok := strings.CutPrefix(ref, refPrefix)
	if !ok || name == "" || name != path.Base(name) {
		return ""
	}
	return name
}

func refFor(name string) string {
	return refPrefix + name
}

func joinURL(base, ref string) string {
	return strings.TrimSuffix(base, "/") + ref
}
