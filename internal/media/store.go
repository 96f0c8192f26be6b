// Package media stores uploaded post attachments on disk as webp files with
// a pre-rendered thumbnail.
package media

import "context"

// SaveInput is an uploaded file before processing.
type SaveInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// Asset describes a stored attachment. Ref is the opaque name posts carry in
// their media_ref field; ThumbRef is the reduced variant.
type Asset struct {
	Ref       string `json:"ref"`
	ThumbRef  string `json:"thumb_ref"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

// Store persists post attachments.
type Store interface {
	Save(ctx context.Context, in SaveInput) (*Asset, error)
	// Delete removes the asset and its thumbnail. Deleting an absent ref is
	// not an error.
	Delete(ctx context.Context, ref string) error
	// Resolve maps a ref to an on-disk path for serving.
	Resolve(ref string) (string, error)
}
