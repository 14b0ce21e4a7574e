package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"friendboard/internal/domain"
	"friendboard/internal/storage"
)

type fakeBlobStore struct {
	mu        sync.Mutex
	uploads   []string
	deletes   []string
	uploadErr error
	deleteErr error
}

func (f *fakeBlobStore) UploadFile(ctx context.Context, localPath, key string) (storage.ObjectRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return storage.ObjectRef{}, f.uploadErr
	}
	f.uploads = append(f.uploads, key)
	return storage.ObjectRef{
		URL:       "https://blobs.example.com/" + key,
		StorageID: key,
	}, nil
}

func (f *fakeBlobStore) DeleteObject(ctx context.Context, storageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, storageID)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeTempImage(t *testing.T) *TransientUpload {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
	return NewTransientUpload(path)
}

func TestBindNewUploadsAndRemovesLocalFile(t *testing.T) {
	store := &fakeBlobStore{}
	binder := NewBinder(store, quietLogger())
	up := writeTempImage(t)

	ref, err := binder.BindNew(context.Background(), up)
	require.NoError(t, err)
	require.NotEmpty(t, ref.StorageID)
	require.Contains(t, ref.URL, ref.StorageID)
	require.Len(t, store.uploads, 1)

	_, statErr := os.Stat(up.Path)
	require.True(t, os.IsNotExist(statErr), "local file must be removed after confirmed upload")
}

func TestBindNewRejectsMissingUpload(t *testing.T) {
	binder := NewBinder(&fakeBlobStore{}, quietLogger())

	_, err := binder.BindNew(context.Background(), nil)
	require.ErrorIs(t, err, ErrImageRequired)
}

func TestBindNewLeavesLocalFileOnUploadFailure(t *testing.T) {
	store := &fakeBlobStore{uploadErr: errors.New("quota exceeded")}
	binder := NewBinder(store, quietLogger())
	up := writeTempImage(t)

	_, err := binder.BindNew(context.Background(), up)
	require.Error(t, err)

	_, statErr := os.Stat(up.Path)
	require.NoError(t, statErr, "failed upload must not destroy the only copy")
}

func TestRebindWithoutUploadIsPassThrough(t *testing.T) {
	store := &fakeBlobStore{}
	binder := NewBinder(store, quietLogger())
	current := domain.ImageRef{URL: "https://blobs.example.com/old", StorageID: "old"}

	ref, replaced, err := binder.Rebind(context.Background(), current, nil)
	require.NoError(t, err)
	require.False(t, replaced)
	require.Equal(t, current, ref)
	require.Empty(t, store.uploads)
	require.Empty(t, store.deletes)
}

func TestRebindWithUploadKeepsOldObject(t *testing.T) {
	store := &fakeBlobStore{}
	binder := NewBinder(store, quietLogger())
	current := domain.ImageRef{URL: "https://blobs.example.com/old", StorageID: "old"}
	up := writeTempImage(t)

	ref, replaced, err := binder.Rebind(context.Background(), current, up)
	require.NoError(t, err)
	require.True(t, replaced)
	require.NotEqual(t, current.StorageID, ref.StorageID)
	require.Empty(t, store.deletes, "rebind never deletes the previous object itself")
}

func TestReleaseDeletesObject(t *testing.T) {
	store := &fakeBlobStore{}
	binder := NewBinder(store, quietLogger())

	require.NoError(t, binder.Release(context.Background(), "some-key"))
	require.Equal(t, []string{"some-key"}, store.deletes)
}

func TestDiscardIsIdempotent(t *testing.T) {
	up := writeTempImage(t)

	require.NoError(t, up.Discard())
	require.NoError(t, up.Discard())
}
