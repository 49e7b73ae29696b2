package models

// ScanResult is the outcome of one complete pass over the content corpus.
type ScanResult struct {
	UnusedAssets      []*Asset       `json:"files" msgpack:"files"`
	TotalAssetCount   int            `json:"totalCount" msgpack:"totalCount"`
	DocumentsScanned  int            `json:"documentsScanned" msgpack:"documentsScanned"`
	MatchesByStrategy map[string]int `json:"matchesByStrategy" msgpack:"matchesByStrategy"`
	DurationMs        int64          `json:"durationMs" msgpack:"durationMs"`
}

// DeleteResult reports the outcome of a batch deletion.
type DeleteResult struct {
	DeletedCount int      `json:"deletedCount"`
	Failed       []string `json:"failed,omitempty"`
}

// Strategy describes one reference detection technique.
type Strategy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Methodology is the operator-facing description of how unused files are found.
type Methodology struct {
	Summary     string     `json:"summary"`
	Strategies  []Strategy `json:"strategies"`
	Limitations []string   `json:"limitations"`
	Bounds      ScanBounds `json:"bounds"`
}

// ScanBounds are the limits a scan runs under. Zero means unbounded.
type ScanBounds struct {
	MaxDocuments  int   `json:"maxDocuments"`
	MaxDurationMs int64 `json:"maxDurationMs"`
}

// DebugReport backs the admin debug panel. TotalCount is nil when the count
// could not be read.
type DebugReport struct {
	TotalCount  *int64           `json:"totalCount"`
	Cache       []CachedResource `json:"cache"`
	Methodology Methodology      `json:"methodology"`
}
