package scanner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules tunes the field and URL strategies.
type Rules struct {
	Fields     []string `yaml:"fields"`
	URLMarkers []string `yaml:"urlMarkers"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Fields: []string{
			"fileId", "fileIds", "file", "files",
			"image", "images", "imageId", "bannerImage",
			"logo", "icon", "thumbnail", "coverImage", "poster",
			"brochure", "attachment", "attachments", "document",
			"photo", "avatar", "media", "url", "src",
		},
		URLMarkers: []string{"/api/files/", "/files/"},
	}
}

// LoadRules reads a YAML rules file. Lists present in the file replace the
// defaults; omitted lists keep them. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return rules, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if len(file.Fields) > 0 {
		rules.Fields = file.Fields
	}
	if len(file.URLMarkers) > 0 {
		rules.URLMarkers = file.URLMarkers
	}
	return rules, nil
}
