// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// UploadResponse is returned by POST /api/upload-pdf.
type UploadResponse struct {
	// FileID identifies the upload in later convert calls.
	FileID string `json:"file_id"`

	// Filename is the original name of the uploaded file.
	Filename string `json:"filename"`

	// Size is the uploaded file size in bytes.
	Size int64 `json:"size"`

	// Pages is the PDF page count.
	Pages int `json:"pages"`

	// Status is "uploaded" on success.
	Status string `json:"status"`
}

// ConvertResponse is returned by POST /api/convert/{file_id}.
type ConvertResponse struct {
	// Status is "converted" on success.
	Status string `json:"status"`

	// Markdown is the cleaned conversion output.
	Markdown string `json:"markdown"`

	// Images lists served URLs for figures extracted from the PDF.
	Images []string `json:"images"`

	// ImageCount is len(Images); kept as its own field for UI convenience.
	ImageCount int `json:"image_count"`
}

// TreatmentRequest is the body of POST /api/apply-treatment.
type TreatmentRequest struct {
	// Markdown is the text to clean up.
	Markdown string `json:"markdown"`

	// Prompt holds user instructions; empty means the default ruleset.
	Prompt string `json:"prompt,omitempty"`

	// UseLLM controls the AI pass. Absent means use AI when configured;
	// explicit false forces the rule-based treatment.
	UseLLM *bool `json:"use_llm,omitempty"`
}

// TreatmentResponse is returned by POST /api/apply-treatment.
type TreatmentResponse struct {
	TreatedMarkdown string `json:"treated_markdown"`

	// Fallback is true when the AI pass failed and the rule-based
	// treatment was applied instead.
	Fallback bool `json:"fallback,omitempty"`
}

// EPUBRequest is the body of POST /api/generate-epub. The response is the
// EPUB itself (application/epub+zip), not JSON.
type EPUBRequest struct {
	Markdown string `json:"markdown"`

	// Title names the book; empty means derive it from the markdown.
	Title string `json:"title,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	MarkerAvailable bool   `json:"marker_available"`
	EpubAvailable   bool   `json:"epub_available"`
	AIAvailable     bool   `json:"ai_available"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// LegacyConvertResponse is returned by the single-shot
// POST /api/convert-to-markdown endpoint kept for the old UI.
type LegacyConvertResponse struct {
	Markdown string `json:"markdown"`

	// Images is a count here, not a list; the old UI only displayed it.
	Images int `json:"images"`
}
