// Package media keeps a user's avatar consistent across three places: the
// transient local upload, the remote blob object, and the image reference
// stored on the user record.
package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"friendboard/internal/domain"
	"friendboard/internal/storage"
)

// ErrImageRequired is returned when a bind is attempted without an upload.
var ErrImageRequired = errors.New("image is required")

const (
	defaultUploadTimeout = 30 * time.Second
	defaultDeleteTimeout = 10 * time.Second
)

// Binder owns the upload/replace/delete protocol for avatar objects.
type Binder struct {
	store         storage.Service
	logger        *logrus.Logger
	uploadTimeout time.Duration
	deleteTimeout time.Duration
}

func NewBinder(store storage.Service, logger *logrus.Logger) *Binder {
	return &Binder{
		store:         store,
		logger:        logger,
		uploadTimeout: defaultUploadTimeout,
		deleteTimeout: defaultDeleteTimeout,
	}
}

// BindNew uploads the transient file and returns the resulting reference.
// The local file is removed only after the remote copy is confirmed, so a
// failed upload never destroys the only copy of the image; on failure the
// file is left for the caller's own cleanup path.
func (b *Binder) BindNew(ctx context.Context, up *TransientUpload) (domain.ImageRef, error) {
	if up == nil {
		return domain.ImageRef{}, ErrImageRequired
	}

	key := uuid.NewString() + filepath.Ext(up.Path)

	uploadCtx, cancel := context.WithTimeout(ctx, b.uploadTimeout)
	defer cancel()

	ref, err := b.store.UploadFile(uploadCtx, up.Path, key)
	if err != nil {
		return domain.ImageRef{}, fmt.Errorf("upload image: %w", err)
	}

	if err := up.Discard(); err != nil {
		// remote copy is live; a stale temp file is not worth failing over
		b.logger.Warnf("remove transient upload %s: %v", up.Path, err)
	}

	return domain.ImageRef{URL: ref.URL, StorageID: ref.StorageID}, nil
}

// Rebind replaces the avatar behind an existing reference. With no upload
// attached it is a pass-through: the current reference is returned and
// nothing is deleted or uploaded. With an upload it produces a new
// reference; releasing the old remote object stays with the caller, which
// must first persist the new reference. The bool reports whether a new
// object was bound.
func (b *Binder) Rebind(ctx context.Context, current domain.ImageRef, up *TransientUpload) (domain.ImageRef, bool, error) {
	if up == nil {
		return current, false, nil
	}

	ref, err := b.BindNew(ctx, up)
	if err != nil {
		return domain.ImageRef{}, false, err
	}
	return ref, true, nil
}

// Release deletes the remote object. Callers invoke it only after the
// owning record no longer references the object.
func (b *Binder) Release(ctx context.Context, storageID string) error {
	if storageID == "" {
		return nil
	}

	deleteCtx, cancel := context.WithTimeout(ctx, b.deleteTimeout)
	defer cancel()

	if err := b.store.DeleteObject(deleteCtx, storageID); err != nil {
		return fmt.Errorf("release image %s: %w", storageID, err)
	}
	return nil
}
