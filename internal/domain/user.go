package domain

import "time"

// User represents a registered member and the avatar bound to them.
type User struct {
	ID             string
	Nickname       string
	Email          string
	PasswordHash   string
	ImageURL       string
	ImageStorageID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ImageRef points at a single live object in blob storage. URL is the
// public address served to clients; StorageID is the store's handle used
// only for deletion and replacement.
type ImageRef struct {
	URL       string
	StorageID string
}

// UserSummary is the projection exposed by bulk listing. Password hashes,
// emails and storage ids never appear here.
type UserSummary struct {
	ID       string
	Nickname string
	ImageURL string
}
