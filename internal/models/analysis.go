package models

// AnalysisResult is the structured output of the AI analysis collaborator.
// It is treated as an opaque record: produced by analysis, passed through
// unmodified to the record stage.
type AnalysisResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Tag1        string `json:"tag1"`
	Tag2        string `json:"tag2"`
	Tag3        string `json:"tag3"`
}

// StoredAsset is the result of the object-store stage: a public URL plus an
// opaque asset identifier.
type StoredAsset struct {
	URL     string `json:"url"`
	AssetID string `json:"asset_id"`
}

// RecordRequest is the payload handed to the database-record collaborator.
type RecordRequest struct {
	AnalysisResult
	ImageURL string `json:"image_url"`
	AssetID  string `json:"asset_id"`
}
