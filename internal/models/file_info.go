package models

import "time"

// DefaultSection is the section reported for assets uploaded without one.
const DefaultSection = "misc"

// Asset represents metadata about an uploaded file.
type Asset struct {
	ID           string    `json:"_id" bson:"_id" msgpack:"_id"`
	Filename     string    `json:"filename" bson:"filename" msgpack:"filename"`
	OriginalName string    `json:"originalName" bson:"originalName" msgpack:"originalName"`
	ContentType  string    `json:"contentType" bson:"contentType" msgpack:"contentType"`
	Size         int64     `json:"size" bson:"size" msgpack:"size"`
	Section      string    `json:"section,omitempty" bson:"section,omitempty" msgpack:"section,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt" msgpack:"createdAt"`
	BlobKey      string    `json:"-" bson:"blobKey" msgpack:"-"`
}

// SectionOrDefault returns the asset section, falling back to "misc".
func (a *Asset) SectionOrDefault() string {
	if a.Section == "" {
		return DefaultSection
	}
	return a.Section
}

// NewAsset fills in the fields every stored asset must carry.
func NewAsset(id, filename, originalName, contentType string, size int64, section string) *Asset {
	if section == "" {
		section = DefaultSection
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Asset{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         size,
		Section:      section,
		CreatedAt:    time.Now().UTC(),
	}
}
