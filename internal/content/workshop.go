package content

import (
	"fmt"

	"github.com/techelons/site/internal/models"
)

// WorkshopFrom extracts the workshop section from a site content document.
// Missing or mistyped fields keep their zero values.
func WorkshopFrom(doc models.Document) models.Workshop {
	w := models.Workshop{Details: []string{}}
	if doc == nil {
		return w
	}
	section, ok := asMap(doc["workshop"])
	if !ok {
		return w
	}

	w.Title, _ = section["title"].(string)
	w.ShortDescription, _ = section["shortDescription"].(string)
	w.BannerImage, _ = section["bannerImage"].(string)
	w.IsRegistrationOpen, _ = section["isRegistrationOpen"].(bool)

	switch details := section["details"].(type) {
	case []any:
		for _, d := range details {
			switch v := d.(type) {
			case string:
				w.Details = append(w.Details, v)
			case nil:
			default:
				w.Details = append(w.Details, fmt.Sprint(v))
			}
		}
	case []string:
		w.Details = append(w.Details, details...)
	}
	return w
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case models.Document:
		return t, true
	}
	return nil, false
}
