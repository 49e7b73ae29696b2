package models

import "time"

// Document is a schemaless record as returned by the document store.
type Document map[string]any

// ContentDocument is any persisted record that might reference an Asset.
type ContentDocument struct {
	Collection string
	ID         string
	Body       any
}

// Workshop is the workshop section of the site content document.
type Workshop struct {
	Title              string   `json:"title"`
	ShortDescription   string   `json:"shortDescription"`
	Details            []string `json:"details"`
	BannerImage        string   `json:"bannerImage"`
	IsRegistrationOpen bool     `json:"isRegistrationOpen"`
}

// CachedResource describes the state of one cache slot.
type CachedResource struct {
	Name      string     `json:"name"`
	Populated bool       `json:"populated"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
