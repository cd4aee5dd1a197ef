// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

// Session is the in-memory record of one upload-through-download pass.
// All fields are owned by the Controller and mutated only through its
// operations.
type Session struct {
	step         Step
	fileName     string
	fileSize     int64
	filePath     string
	fileID       string
	markdown     string
	images       []string
	artifact     []byte
	artifactName string
}

// Snapshot is a read-only copy of session state for rendering.
type Snapshot struct {
	Step         Step
	FileName     string
	FileSize     int64
	FileID       string
	Markdown     string
	Images       []string
	HasArtifact  bool
	ArtifactName string
}
