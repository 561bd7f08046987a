package domain

import "time"

// ProjectSummary is one row of a project listing.
type ProjectSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// SaveResult is returned by a successful project save.
type SaveResult struct {
	ID           string    `json:"id"`
	LastModified time.Time `json:"lastModified"`
}

// Blob is binary asset data with its MIME type.
type Blob struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
}

// AssetRef identifies an uploaded asset.
type AssetRef struct {
	AssetID  string `json:"assetId"`
	AssetURL string `json:"assetUrl"`
}
