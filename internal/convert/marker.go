// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdiddy/paperpress/internal/container"
)

const imageMarker = "marker-pdf:latest"

// markerArgs asks the container entrypoint for plain Markdown on stdout.
var markerArgs = []string{"--output_format", "markdown"}

// MarkerConverter converts PDFs by piping them through the marker container
// image, which handles complex layouts and tables better than local
// rendering. It depends on a container.Runtime (docker or podman) injected
// at construction time. Figures are not extracted on this path; the stdout
// pipe carries Markdown only.
type MarkerConverter struct {
	runtime container.Runtime
}

// NewMarkerConverter creates a converter that uses the given container
// runtime to run the marker image. It verifies that the image exists
// locally before returning.
func NewMarkerConverter(rt container.Runtime) (*MarkerConverter, error) {
	if err := rt.ImageExists(imageMarker); err != nil {
		return nil, fmt.Errorf("marker image not available in %s: %w", rt.Name(), err)
	}
	return &MarkerConverter{runtime: rt}, nil
}

// Convert reads the PDF at pdfPath, pipes it through the marker container,
// and returns the resulting Markdown text.
func (m *MarkerConverter) Convert(pdfPath string) (*Result, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := m.runtime.Run(imageMarker, markerArgs, f, &out); err != nil {
		return nil, fmt.Errorf("converting %s with marker: %w", pdfPath, err)
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("marker produced empty output for %s", pdfPath)
	}

	return &Result{Markdown: out.String()}, nil
}
