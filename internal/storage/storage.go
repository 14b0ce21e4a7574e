package storage

import "context"

// ObjectRef identifies one uploaded object. URL is dereferenceable by
// clients; StorageID is the store's handle, used for deletion only.
type ObjectRef struct {
	URL       string
	StorageID string
}

// Options conveys the upload destination.
type Options struct {
	Bucket        string
	KeyPrefix     string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// Service stores and removes avatar objects in remote object storage.
type Service interface {
	UploadFile(ctx context.Context, localPath, key string) (ObjectRef, error)
	DeleteObject(ctx context.Context, storageID string) error
}
